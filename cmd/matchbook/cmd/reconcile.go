package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/folio-labs/matchbook/internal/core/config"
	"github.com/folio-labs/matchbook/internal/core/db"
	"github.com/folio-labs/matchbook/internal/mapping"
	"github.com/folio-labs/matchbook/internal/match"
	"github.com/folio-labs/matchbook/internal/tabular"
	"github.com/folio-labs/matchbook/internal/types"
	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Match a batch of OCR records against reference data",
	Long: `Reads a JSON batch (records, reference sheets, optional roster) and
writes enriched records plus run statistics. With --template the matched
records are additionally run through the named output template; with
--company/--doc-type/--item-type the stored mapping configuration is
resolved first and reported alongside the results.`,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	reconcileCmd.Flags().String("input", "", "input JSON file (default stdin)")
	reconcileCmd.Flags().String("output", "", "output JSON file (default stdout)")
	reconcileCmd.Flags().String("template", "", "output template name to apply to matched records")
	reconcileCmd.Flags().Int64("company", 0, "company id for mapping config resolution")
	reconcileCmd.Flags().Int64("doc-type", 0, "doc type id for mapping config resolution")
	reconcileCmd.Flags().String("item-type", "", "item type for mapping config resolution")
	reconcileCmd.Flags().Int("workers", 0, "matching parallelism (default from config)")
}

// reconcileInput is the JSON batch shape.
type reconcileInput struct {
	Records []types.Record `json:"records"`
	Sheets  []types.Sheet  `json:"sheets"`
	Roster  *rosterInput   `json:"roster,omitempty"`

	// CurrentConfig is the per-item mapping override, if the batch
	// carries one.
	CurrentConfig map[string]any `json:"current_config,omitempty"`
}

type rosterInput struct {
	Label   string `json:"label"`
	Entries []struct {
		Name       string `json:"name"`
		Department string `json:"department"`
		ShopCode   string `json:"shop_code"`
	} `json:"entries"`
}

// reconcileOutput is the JSON result shape.
type reconcileOutput struct {
	RunID   types.RunID     `json:"run_id"`
	Records []types.Record  `json:"records"`
	Stats   statsOutput     `json:"stats"`
	Table   *tabular.Table  `json:"table,omitempty"`
	Config  *configOutput   `json:"resolved_config,omitempty"`
	Issues  []match.Warning `json:"warnings,omitempty"`
}

type statsOutput struct {
	Total         int                `json:"total"`
	Matched       int                `json:"matched"`
	Unmatched     int                `json:"unmatched"`
	MatchRate     float64            `json:"match_rate"`
	ByTier        map[match.Tier]int `json:"by_tier"`
	SheetsSkipped int                `json:"sheets_skipped"`
	DuplicateKeys int                `json:"duplicate_keys"`
	RowsSkipped   int                `json:"rows_skipped"`
}

type configOutput struct {
	Source     string         `json:"source"`
	TemplateID *int64         `json:"template_id,omitempty"`
	Raw        map[string]any `json:"config"`
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers, _ = cmd.Flags().GetInt("workers")
	}

	input, err := readInput(cmd)
	if err != nil {
		return err
	}

	templateName, _ := cmd.Flags().GetString("template")
	itemType, _ := cmd.Flags().GetString("item-type")

	var store *db.Store
	if templateName != "" || itemType != "" {
		database, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()
		store, err = db.NewStore(database)
		if err != nil {
			return fmt.Errorf("failed to load queries: %w", err)
		}
	}

	out := reconcileOutput{}

	// Resolve the effective mapping configuration before matching, once
	// per processing unit
	if itemType != "" {
		companyID, _ := cmd.Flags().GetInt64("company")
		docTypeID, _ := cmd.Flags().GetInt64("doc-type")
		resolved, err := mapping.NewResolver(store).Resolve(ctx, companyID, docTypeID, itemType, input.CurrentConfig)
		if err != nil {
			return fmt.Errorf("failed to resolve mapping config: %w", err)
		}
		if resolved != nil {
			out.Config = &configOutput{
				Source:     resolved.Source,
				TemplateID: resolved.TemplateID,
				Raw:        resolved.Raw,
			}
		}
	}

	lookup, report := match.BuildLookup(input.Sheets, cfg.Synonyms())
	for _, w := range report.Warnings {
		log.Printf("lookup: %s", w)
	}

	opts := []match.Option{
		match.WithThreshold(cfg.FuzzyThreshold),
	}
	if input.Roster != nil {
		entries := make([]match.RosterEntry, 0, len(input.Roster.Entries))
		for _, e := range input.Roster.Entries {
			entries = append(entries, match.RosterEntry{
				Name:       e.Name,
				Department: e.Department,
				ShopCode:   e.ShopCode,
			})
		}
		opts = append(opts, match.WithRoster(match.NewRoster(input.Roster.Label, entries)))
	}
	matcher := match.NewMatcher(lookup, opts...)

	enriched, stats, err := match.RunEnriched(ctx, matcher, input.Records, cfg.Workers)
	if err != nil {
		return fmt.Errorf("matching failed: %w", err)
	}
	stats.ObserveReport(report)

	out.RunID = stats.RunID
	out.Records = enriched
	out.Issues = report.Warnings
	out.Stats = statsOutput{
		Total:         stats.Total,
		Matched:       stats.Matched,
		Unmatched:     stats.Unmatched,
		MatchRate:     stats.MatchRate(),
		ByTier:        stats.ByTier,
		SheetsSkipped: stats.SheetsSkipped,
		DuplicateKeys: stats.DuplicateKeys,
		RowsSkipped:   stats.RowsSkipped,
	}

	if templateName != "" {
		tpl, err := store.Template(ctx, templateName, cfg.MaxExpressionLength)
		if err != nil {
			return fmt.Errorf("failed to load template: %w", err)
		}
		table, err := tabular.Generate(enriched, tpl)
		if err != nil {
			return fmt.Errorf("generation failed: %w", err)
		}
		out.Table = table
	}

	log.Printf("matchbook v%s run %s: %d records, %.1f%% matched", Version, stats.RunID, stats.Total, stats.MatchRate())
	return writeOutput(cmd, out)
}

func readInput(cmd *cobra.Command) (*reconcileInput, error) {
	path, _ := cmd.Flags().GetString("input")
	var r io.Reader = os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	var input reconcileInput
	if err := json.NewDecoder(r).Decode(&input); err != nil {
		return nil, fmt.Errorf("failed to decode input: %w", err)
	}
	return &input, nil
}

func writeOutput(cmd *cobra.Command, out reconcileOutput) error {
	path, _ := cmd.Flags().GetString("output")
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
