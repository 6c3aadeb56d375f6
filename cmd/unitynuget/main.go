package main

import (
	"fmt"
	"os"

	"github.com/ochairo/unitynuget/internal/external-adapters/config"
	"github.com/ochairo/unitynuget/internal/external-adapters/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	settings *config.Settings
	logger   *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "unitynuget",
	Short: "Republish NuGet packages as a Unity Package Manager registry",
	Long: `unitynuget converts an allow-list of NuGet packages into Unity packages and serves them
over the npm registry protocol used by scoped registries in the Unity Package Manager.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.New(os.Stderr)
		if err := logger.SetLevel(logLevel); err != nil {
			return err
		}
		v, err := config.NewViper(cfgFile)
		if err != nil {
			return err
		}
		settings, err = config.Load(v)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.unitynuget.yaml)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "loglevel", "l", "info", "Set log level. Available: debug, info, warn, error")

	rootCmd.AddCommand(serveCmd, buildCmd, listCmd, verifyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
