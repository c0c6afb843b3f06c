package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/landmetric/epc/pkg/config"
	"github.com/landmetric/epc/pkg/logging"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "epc",
		Short:   "UK Energy Performance Certificate retrieval and export tool",
		Version: version,
	}

	root.AddCommand(
		newSearchCmd(),
		newReportCmd(),
		newTrendsCmd(),
		newCacheCmd(),
		newVerifyCmd(),
	)

	err := root.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads configuration and initializes logging from it.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logging.Init(cfg.LogLevel)
	return cfg, nil
}
