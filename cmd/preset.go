package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "List, detect and apply optimization presets",
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available presets",
	Run: func(cmd *cobra.Command, _ []string) {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, p := range presetUsecase.ListPresets() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.Title, p.Description)
		}
		_ = w.Flush()
	},
}

var presetDetectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Print the preset the stored settings match",
	Run: func(cmd *cobra.Command, _ []string) {
		current, err := presetUsecase.DetectCurrentPreset(context.Background())
		if err != nil {
			logrus.Fatalf("[PRESET] %v", err)
		}
		if current == "" {
			current = "custom"
		}
		fmt.Fprintln(cmd.OutOrStdout(), current)
	},
}

var presetApplyCmd = &cobra.Command{
	Use:   "apply <name>",
	Short: "Apply a preset",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		preview, err := presetUsecase.Preview(ctx, args[0])
		if err != nil {
			logrus.Fatalf("[PRESET] %v", err)
		}
		if err := presetUsecase.ApplyPreset(ctx, args[0]); err != nil {
			logrus.Fatalf("[PRESET] %v", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "preset %s applied, %d settings changed\n", preview.Preset, preview.Changes)
	},
}

func init() {
	presetCmd.AddCommand(presetListCmd, presetDetectCmd, presetApplyCmd)
	rootCmd.AddCommand(presetCmd)
}
