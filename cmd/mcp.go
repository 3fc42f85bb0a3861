package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/AzielCF/az-speed/core/config"
	"github.com/AzielCF/az-speed/ui/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the optimizer MCP server using SSE",
	Long:  `Start an MCP (Model Context Protocol) server using Server-Sent Events (SSE) transport. Agents can read settings, apply presets, check for updates and ask whether a URL would be optimized.`,
	Run:   mcpServer,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("mcp-port", "", "Port for the SSE MCP server (default MCP_PORT or 8081)")
	mcpCmd.Flags().String("mcp-host", "", "Host for the SSE MCP server (default MCP_HOST or localhost)")
}

func mcpServer(cmd *cobra.Command, _ []string) {
	cfg := config.Global
	if v, _ := cmd.Flags().GetString("mcp-port"); v != "" {
		cfg.MCP.Port = v
	}
	if v, _ := cmd.Flags().GetString("mcp-host"); v != "" {
		cfg.MCP.Host = v
	}

	mcpServer := server.NewMCPServer(
		"az-speed optimizer MCP Server",
		cfg.App.Version,
		server.WithToolCapabilities(true),
	)

	optimizerHandler := mcp.InitMcpOptimizer(settingsUsecase, presetUsecase, updateUsecase, engine)
	optimizerHandler.AddOptimizerTools(mcpServer)

	sseServer := server.NewSSEServer(
		mcpServer,
		server.WithBaseURL(fmt.Sprintf("http://%s:%s", cfg.MCP.Host, cfg.MCP.Port)),
		server.WithKeepAlive(true),
	)

	addr := fmt.Sprintf("%s:%s", cfg.MCP.Host, cfg.MCP.Port)
	logrus.Printf("Starting optimizer MCP SSE server on %s", addr)
	logrus.Printf("SSE endpoint: http://%s/sse", addr)
	logrus.Printf("Message endpoint: http://%s/message", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("[MCP] Reception of termination signal, shutting down gracefully...")
		StopApp()
		os.Exit(0)
	}()

	if err := sseServer.Start(addr); err != nil {
		logrus.Fatalf("Failed to start SSE server: %v", err)
	}
}
