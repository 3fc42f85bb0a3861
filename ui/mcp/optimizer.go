package mcp

import (
	"context"
	"fmt"
	"net/url"

	domainPreset "github.com/AzielCF/az-speed/domains/preset"
	domainSettings "github.com/AzielCF/az-speed/domains/settings"
	domainUpdate "github.com/AzielCF/az-speed/domains/update"
	"github.com/AzielCF/az-speed/optimizer"
	"github.com/AzielCF/az-speed/optimizer/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
)

type OptimizerHandler struct {
	settings domainSettings.ISettingsUsecase
	presets  domainPreset.IPresetUsecase
	updates  domainUpdate.IUpdateUsecase
	engine   *optimizer.Engine
}

func InitMcpOptimizer(settings domainSettings.ISettingsUsecase, presets domainPreset.IPresetUsecase, updates domainUpdate.IUpdateUsecase, engine *optimizer.Engine) *OptimizerHandler {
	return &OptimizerHandler{settings: settings, presets: presets, updates: updates, engine: engine}
}

func (h *OptimizerHandler) AddOptimizerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(h.toolGetSettings(), h.handleGetSettings)
	mcpServer.AddTool(h.toolListPresets(), h.handleListPresets)
	mcpServer.AddTool(h.toolDetectPreset(), h.handleDetectPreset)
	mcpServer.AddTool(h.toolApplyPreset(), h.handleApplyPreset)
	mcpServer.AddTool(h.toolCheckUpdates(), h.handleCheckUpdates)
	mcpServer.AddTool(h.toolMonitoringStats(), h.handleMonitoringStats)
	mcpServer.AddTool(h.toolEvaluateRequest(), h.handleEvaluateRequest)
}

func (h *OptimizerHandler) toolGetSettings() mcp.Tool {
	return mcp.NewTool(
		"get_settings",
		mcp.WithDescription("Read the optimizer settings, either one admin tab or all of them."),
		mcp.WithTitleAnnotation("Get Settings"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("tab",
			mcp.Description("Tab id such as javascript, css, fonts, images, core, third-party, preloading, global or updates. Empty returns every tab."),
		),
	)
}

func (h *OptimizerHandler) handleGetSettings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tab := request.GetString("tab", "")
	if tab == "" {
		views, err := h.settings.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultStructured(views, fmt.Sprintf("%d settings tabs", len(views))), nil
	}

	view, err := h.settings.GetTab(ctx, tab)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructured(view, fmt.Sprintf("%d settings in %s", len(view.Fields), view.Title)), nil
}

func (h *OptimizerHandler) toolListPresets() mcp.Tool {
	return mcp.NewTool(
		"list_presets",
		mcp.WithDescription("List the safe, medium and risky presets with the settings each one writes."),
		mcp.WithTitleAnnotation("List Presets"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

func (h *OptimizerHandler) handleListPresets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	presets := h.presets.ListPresets()
	return mcp.NewToolResultStructured(presets, fmt.Sprintf("%d presets", len(presets))), nil
}

func (h *OptimizerHandler) toolDetectPreset() mcp.Tool {
	return mcp.NewTool(
		"detect_preset",
		mcp.WithDescription("Report which preset the current settings match. Clears a stale marker when settings drifted."),
		mcp.WithTitleAnnotation("Detect Preset"),
	)
}

func (h *OptimizerHandler) handleDetectPreset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := h.presets.DetectCurrentPreset(ctx)
	if err != nil {
		return nil, err
	}
	fallback := "No preset matches the current settings"
	if name != "" {
		fallback = "Current preset: " + name
	}
	return mcp.NewToolResultStructured(map[string]string{"preset": name}, fallback), nil
}

func (h *OptimizerHandler) toolApplyPreset() mcp.Tool {
	return mcp.NewTool(
		"apply_preset",
		mcp.WithDescription("Overwrite the optimizer settings with one preset."),
		mcp.WithTitleAnnotation("Apply Preset"),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("preset",
			mcp.Description("safe, medium or risky"),
			mcp.Required(),
			mcp.Enum(domainPreset.Names...),
		),
	)
}

func (h *OptimizerHandler) handleApplyPreset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("preset")
	if err != nil {
		return nil, err
	}
	if err := h.presets.ApplyPreset(ctx, name); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	logrus.Infof("[MCP] preset %s applied", name)
	return mcp.NewToolResultText("Preset " + name + " applied"), nil
}

func (h *OptimizerHandler) toolCheckUpdates() mcp.Tool {
	return mcp.NewTool(
		"check_updates",
		mcp.WithDescription("Check the configured update source for a newer plugin version."),
		mcp.WithTitleAnnotation("Check Updates"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithBoolean("force",
			mcp.Description("Skip the cached result and ask the source again."),
		),
	)
}

func (h *OptimizerHandler) handleCheckUpdates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res := h.updates.CheckForUpdate(ctx, request.GetBool("force", false))
	fallback := "Running the latest version " + res.CurrentVersion
	if res.UpdateAvailable {
		fallback = fmt.Sprintf("Version %s is available (installed %s)", res.NewVersion, res.CurrentVersion)
	}
	return mcp.NewToolResultStructured(res, fallback), nil
}

func (h *OptimizerHandler) toolMonitoringStats() mcp.Tool {
	return mcp.NewTool(
		"get_monitoring_stats",
		mcp.WithDescription("Return optimizer totals and the most recent optimized requests."),
		mcp.WithTitleAnnotation("Monitoring Stats"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func (h *OptimizerHandler) handleMonitoringStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := h.engine.Monitor().GetStats()
	fallback := fmt.Sprintf("%d requests, %d optimized, %s saved", stats.TotalRequests, stats.TotalOptimized, stats.BytesSavedHuman)
	return mcp.NewToolResultStructured(stats, fallback), nil
}

func (h *OptimizerHandler) toolEvaluateRequest() mcp.Tool {
	return mcp.NewTool(
		"evaluate_request",
		mcp.WithDescription("Run the safety gate for a URL and tell whether the page would be optimized."),
		mcp.WithTitleAnnotation("Evaluate Request"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("url",
			mcp.Description("Absolute page URL, for example https://example.com/shop/"),
			mcp.Required(),
		),
		mcp.WithBoolean("logged_in",
			mcp.Description("Simulate a logged-in visitor."),
		),
		mcp.WithBoolean("ajax",
			mcp.Description("Simulate an XMLHttpRequest."),
		),
	)
}

type evaluation struct {
	Safe    bool                  `json:"safe"`
	Reason  string                `json:"reason"`
	Context domain.RequestContext `json:"context"`
}

func (h *OptimizerHandler) handleEvaluateRequest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("url")
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return mcp.NewToolResultError("url must be absolute"), nil
	}

	info := domain.RequestInfo{Method: "GET", Scheme: u.Scheme, Host: u.Host, Path: u.Path, RawQuery: u.RawQuery}
	if request.GetBool("logged_in", false) {
		info.Cookies = append(info.Cookies, "wordpress_logged_in_mcp")
	}
	if request.GetBool("ajax", false) {
		info.RequestedWith = "XMLHttpRequest"
	}

	rc, decision := h.engine.Evaluate(ctx, info)
	out := evaluation{Safe: decision.Safe, Reason: string(decision.Reason), Context: rc}
	return mcp.NewToolResultStructured(out, fmt.Sprintf("safe=%t reason=%s", out.Safe, out.Reason)), nil
}
