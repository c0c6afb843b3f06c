package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/landmetric/epc/pkg/epcapi"
)

func newVerifyCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Test API connection and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			client := epcapi.New(cfg.API)
			if err := client.Verify(cmd.Context()); err != nil {
				return fmt.Errorf("connection test failed: %w", err)
			}
			fmt.Println("API connection successful.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "epc.yaml", "path to config file")
	return cmd
}
