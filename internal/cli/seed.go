package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/ordinal/internal/config"
	"github.com/roach88/ordinal/internal/store"
)

// SeedFile is the YAML document read by the seed command.
//
//	lists:
//	  faq:
//	    - id: shipping
//	      data: {title: Shipping}
//	    - id: returns
//	  team:
//	    - id: hero
//	      fixed: true
//	    - id: ann
//	      group: leadership
type SeedFile struct {
	Lists map[string][]SeedRecord `yaml:"lists"`
}

// SeedRecord is one record of a SeedFile. Without sort_order, records are
// numbered in file order within their group using the list's numbering.
type SeedRecord struct {
	ID        string         `yaml:"id"`
	SortOrder *int64         `yaml:"sort_order"`
	Group     string         `yaml:"group"`
	Fixed     bool           `yaml:"fixed"`
	Data      map[string]any `yaml:"data"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Load records from a YAML file",
		Long: `Insert or replace records from a YAML seed file.

Records that already exist are overwritten, including their sort order.

Example:
  ordinal seed --db ./ordinal.db testdata/faq.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, cmd, args[0])
		},
	}
}

// seedSummary is the JSON payload of the seed command.
type seedSummary struct {
	Lists   []string `json:"lists"`
	Records int      `json:"records"`
}

func runSeed(opts *RootOptions, cmd *cobra.Command, path string) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read seed file", err)
	}
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return WrapExitError(ExitCommandError, "failed to parse seed file", err)
	}

	ws, err := openWorkspace(opts)
	if err != nil {
		return err
	}
	defer ws.Close()

	records, err := seed.Records(ws.config)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid seed file", err)
	}

	ctx := cmdContext(cmd)
	summary := seedSummary{Lists: make([]string, 0, len(records))}
	for _, list := range sortedKeys(records) {
		for _, r := range records[list] {
			if err := ws.store.UpsertRecord(ctx, list, r); err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("failed to seed list %s", list), err)
			}
		}
		summary.Lists = append(summary.Lists, list)
		summary.Records += len(records[list])
	}

	return f.Success(summary, func(w io.Writer) {
		fmt.Fprintf(w, "Seeded %d records into %d lists.\n", summary.Records, len(summary.Lists))
	})
}

// Records converts the seed into store records per list, numbering records
// without an explicit sort_order.
func (s SeedFile) Records(cfg *config.Config) (map[string][]store.Record, error) {
	out := make(map[string][]store.Record, len(s.Lists))
	for list, entries := range s.Lists {
		numbering := cfg.Lookup(list).Numbering
		byGroup := make(map[string][]string)
		seen := make(map[string]bool, len(entries))

		records := make([]store.Record, 0, len(entries))
		for _, e := range entries {
			if e.ID == "" {
				return nil, fmt.Errorf("list %s: record without id", list)
			}
			if seen[e.ID] {
				return nil, fmt.Errorf("list %s: duplicate id %q", list, e.ID)
			}
			seen[e.ID] = true

			var data json.RawMessage
			if len(e.Data) > 0 {
				b, err := json.Marshal(e.Data)
				if err != nil {
					return nil, fmt.Errorf("list %s: record %q: %w", list, e.ID, err)
				}
				data = b
			}
			r := store.Record{ID: e.ID, Payload: store.Body{Group: e.Group, Fixed: e.Fixed, Data: data}}
			if e.SortOrder != nil {
				r.SortOrder = *e.SortOrder
			} else {
				byGroup[e.Group] = append(byGroup[e.Group], e.ID)
			}
			records = append(records, r)
		}

		assigned := make(map[string]int64)
		for _, ids := range byGroup {
			for _, a := range numbering.Assign(ids) {
				assigned[a.ID] = a.SortOrder
			}
		}
		for i := range records {
			if so, ok := assigned[records[i].ID]; ok {
				records[i].SortOrder = so
			}
		}
		out[list] = records
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
