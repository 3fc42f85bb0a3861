package cmd

import (
	"fmt"

	"github.com/AzielCF/az-speed/pkg/security"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// hashPasswordCmd prints a bcrypt hash usable as the secret part of
// APP_BASIC_AUTH.
var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print a bcrypt hash for APP_BASIC_AUTH",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		hash, err := security.HashPassword(args[0])
		if err != nil {
			logrus.Fatalln(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
	},
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
}
