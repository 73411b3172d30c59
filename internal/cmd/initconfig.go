package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evolutecode/leaddesk/internal/config"
)

var initConfigPath string

func init() {
	initConfigCmd.Flags().StringVarP(&initConfigPath, "output", "o", "leaddesk.yaml", "where to write the config")
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "write a starter config file with a fresh secret key",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.WriteStarterConfig(initConfigPath); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", initConfigPath)
		return nil
	},
}
