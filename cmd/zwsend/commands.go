package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/backkem/zwave/pkg/commandclass"
	"github.com/backkem/zwave/pkg/config"
)

var (
	rootCmd = &cobra.Command{
		Use:           "zwsend",
		Short:         "Send command-class commands through a Z-Wave controller.",
		Long:          ``,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
)

var (
	flagConfig   string
	flagPort     string
	flagSimulate bool
	flagDebug    bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Configuration file (HCL)")
	rootCmd.PersistentFlags().StringVarP(&flagPort, "port", "p", "", "Serial device, overrides serial.port")
	rootCmd.PersistentFlags().BoolVarP(&flagSimulate, "simulate", "s", false, "Use an in-memory controller")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "Debug logging (trace)")
}

func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads --config, or the defaults without one, and applies the
// command line overrides.
func loadConfig() (*config.Config, error) {
	var (
		conf *config.Config
		err  error
	)
	if flagConfig != "" {
		conf, err = config.Load(flagConfig)
		if err != nil {
			return nil, err
		}
	} else {
		conf = config.Default()
	}

	if flagPort != "" {
		conf.Serial.Port = flagPort
	}
	if flagDebug {
		conf.Log.Level = "trace"
	}
	return conf, conf.Validate()
}

func parseNode(arg string) (commandclass.NodeID, error) {
	v, err := strconv.ParseUint(arg, 0, 8)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid node ID %q", arg)
	}
	return commandclass.NodeID(v), nil
}

func parseByte(name, arg string) (uint8, error) {
	v, err := strconv.ParseUint(arg, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, arg)
	}
	return uint8(v), nil
}
