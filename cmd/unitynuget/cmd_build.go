package main

import (
	"fmt"
	"time"

	orchestrators "github.com/ochairo/unitynuget/internal/domain-orchestrators"
	"github.com/spf13/cobra"
)

var buildFilter string

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run one build over the allow-list and print the report",
	Long: `Run one build over the allow-list, writing artifacts into the persistent folder.
The command exits with status 1 when the run recorded any error.`,
	Example: `  unitynuget build
  unitynuget build --filter '^Newtonsoft'`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildFilter, "filter", "", "Only process package ids matching this case-insensitive regex")
}

func runBuild(cmd *cobra.Command, _ []string) error {
	if buildFilter != "" {
		settings.RegistryFilter = buildFilter
		if err := settings.Validate(); err != nil {
			return err
		}
	}

	a, err := newApp(settings, logger)
	if err != nil {
		return err
	}

	scheduler := orchestrators.NewScheduler(a.orchestrator, a.report, a.lock, orchestrators.SchedulerConfig{
		UpdateInterval: settings.UpdateInterval,
		RetryInterval:  settings.RetryInterval,
	}, logger)

	result, err := scheduler.RunOnce(cmd.Context())
	if err != nil {
		return err
	}

	status := result.Status
	for _, msg := range status.Information {
		fmt.Printf("ℹ️  %s\n", msg)
	}
	for _, msg := range status.Warnings {
		fmt.Printf("⚠️  %s\n", msg)
	}
	for _, msg := range status.Errors {
		fmt.Printf("❌ %s\n", msg)
	}

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("📦 Packages: %d\n", result.Catalog.Len())
	fmt.Printf("⏱️  Duration: %s\n", result.Duration.Round(time.Millisecond))
	fmt.Printf("⚠️  Warnings: %d\n", len(status.Warnings))
	fmt.Printf("❌ Errors: %d\n", len(status.Errors))
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	if !result.Success {
		return fmt.Errorf("build failed with %d errors", len(status.Errors))
	}
	return nil
}
