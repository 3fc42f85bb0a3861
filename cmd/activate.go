package cmd

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var activateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Write the default value of every activation setting that is not stored yet",
	Run: func(cmd *cobra.Command, _ []string) {
		written, err := settingsUsecase.Activate(context.Background())
		if err != nil {
			logrus.Fatalf("[ACTIVATE] %v", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d default settings written\n", written)
	},
}

func init() {
	rootCmd.AddCommand(activateCmd)
}
