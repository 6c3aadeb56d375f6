package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/ochairo/unitynuget/internal/domain/entities"
	"github.com/ochairo/unitynuget/internal/domain/interfaces/repositories"
	"github.com/ochairo/unitynuget/internal/domain/services"
	"github.com/ochairo/unitynuget/internal/external-adapters/yaml"
	"github.com/spf13/cobra"
)

var listIgnored bool

var listCmd = &cobra.Command{
	Use:   "list [package-id...]",
	Short: "List the allow-list entries",
	Long: `List the allow-list entries, or only the named package ids.
Named ids are looked up case-insensitively and shown even when ignored or filtered out.`,
	Example: `  unitynuget list
  unitynuget list --ignored
  unitynuget list Newtonsoft.Json System.Memory`,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listIgnored, "ignored", false, "Also show ignored entries")
}

func runList(cmd *cobra.Command, args []string) error {
	registry := yaml.NewRegistryRepository(settings.RegistryFile)
	lister := entryLister{
		registry:    registry,
		scope:       settings.UnityScope,
		filter:      settings.Filter(),
		showIgnored: listIgnored,
		out:         os.Stdout,
	}
	if len(args) > 0 {
		return lister.show(cmd.Context(), args)
	}
	return lister.list(cmd.Context())
}

// entryLister prints allow-list entries
type entryLister struct {
	registry    repositories.RegistryRepository
	scope       string
	filter      *regexp.Regexp
	showIgnored bool
	out         io.Writer
}

func (l entryLister) list(ctx context.Context) error {
	entries, err := l.registry.ListEntries(ctx)
	if err != nil {
		return fmt.Errorf("error listing packages: %w", err)
	}

	shown := 0
	for _, entry := range entries {
		if entry.Ignored && !l.showIgnored {
			continue
		}
		if l.filter != nil && !l.filter.MatchString(entry.ID) {
			continue
		}
		shown++
		l.print(entry)
	}

	fmt.Fprintf(l.out, "\n%d of %d entries shown\n", shown, len(entries))
	return nil
}

// show prints the named entries; unknown ids are reported and fail the command
func (l entryLister) show(ctx context.Context, ids []string) error {
	missing := 0
	for _, id := range ids {
		entry, err := l.registry.GetEntry(ctx, id)
		if err != nil {
			fmt.Fprintf(l.out, "❌ %s: %v\n", id, err)
			missing++
			continue
		}
		l.print(*entry)
	}
	if missing > 0 {
		return fmt.Errorf("%d of %d packages not in the allow-list", missing, len(ids))
	}
	return nil
}

func (l entryLister) print(entry entities.RegistryEntry) {
	var flags []string
	if entry.Ignored {
		flags = append(flags, "ignored")
	}
	if !entry.Listed {
		flags = append(flags, "unlisted")
	}
	if entry.Analyzer {
		flags = append(flags, "analyzer")
	}
	if entry.IncludePrerelease {
		flags = append(flags, "prerelease")
	}

	fmt.Fprintf(l.out, "  %-40s %s\n", entry.ID, entry.Version)
	fmt.Fprintf(l.out, "  %-40s Unity package: %s\n", "", services.UnityPackageName(l.scope, entry.ID))
	if len(entry.DefineConstraints) > 0 {
		fmt.Fprintf(l.out, "  %-40s Define constraints: %s\n", "", strings.Join(entry.DefineConstraints, ", "))
	}
	if len(flags) > 0 {
		fmt.Fprintf(l.out, "  %-40s Flags: %s\n", "", strings.Join(flags, ", "))
	}
}
