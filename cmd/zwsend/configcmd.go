package main

import (
	"github.com/spf13/cobra"
)

var cmdConfig = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(conf.Encode())
		return err
	},
}

func init() {
	rootCmd.AddCommand(cmdConfig)
}
