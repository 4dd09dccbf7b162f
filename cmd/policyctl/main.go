// Command policyctl queries a policy dataset offline and prints JSON.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/chat"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/document"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/policy"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/filter"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	dataset string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "policyctl",
		Short: "Search and inspect a government policy dataset",
		Long: `policyctl runs the NitiSetu search engine against a policy dataset
without starting the HTTP service.

Examples:
  policyctl search digital education
  policyctl search --category Infrastructure --sort budget_desc
  policyctl suggest sch
  policyctl stats --dataset ./policies.json
  policyctl analyze report.txt`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "error"
			if opts.verbose {
				level = "debug"
			}
			logger.SetupWriter(cmd.ErrOrStderr(), level, "text")
		},
	}
	root.PersistentFlags().StringVarP(&opts.dataset, "dataset", "d", "", "policy JSON file (default: built-in dataset)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newSearchCmd(opts),
		newSuggestCmd(opts),
		newStatsCmd(opts),
		newAskCmd(opts),
		newAnalyzeCmd(),
	)
	return root
}

func (o *rootOptions) engine() (*engine.Engine, error) {
	ds, err := policy.Load(o.dataset)
	if err != nil {
		return nil, err
	}
	return engine.New(ds), nil
}

type searchOptions struct {
	category  string
	status    string
	minBudget float64
	maxBudget float64
	sort      string
	limit     int
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	opts := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Rank policies for a query and apply filters",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := root.engine()
			if err != nil {
				return err
			}
			f, err := opts.filters(cmd)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), eng.Execute(strings.Join(args, " "), f, opts.limit))
		},
	}
	cmd.Flags().StringVar(&opts.category, "category", filter.All, "exact category to keep")
	cmd.Flags().StringVar(&opts.status, "status", filter.All, "exact status to keep")
	cmd.Flags().Float64Var(&opts.minBudget, "min-budget", 0, "minimum budget in crores")
	cmd.Flags().Float64Var(&opts.maxBudget, "max-budget", 0, "maximum budget in crores")
	cmd.Flags().StringVar(&opts.sort, "sort", string(filter.SortRelevance), "relevance, budget_desc, budget_asc or name")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "maximum results to print (0 for all)")
	return cmd
}

func (o *searchOptions) filters(cmd *cobra.Command) (filter.Filters, error) {
	f := filter.Filters{
		Category: o.category,
		Status:   o.status,
		SortBy:   filter.ParseSortOrder(o.sort),
	}
	minSet, maxSet := cmd.Flags().Changed("min-budget"), cmd.Flags().Changed("max-budget")
	if !minSet && !maxSet {
		return f, nil
	}
	br := &filter.BudgetRange{Min: 0, Max: math.MaxFloat64}
	if minSet {
		br.Min = o.minBudget
	}
	if maxSet {
		br.Max = o.maxBudget
	}
	if br.Min > br.Max {
		return f, fmt.Errorf("--min-budget %g exceeds --max-budget %g", br.Min, br.Max)
	}
	f.BudgetRange = br
	return f, nil
}

func newSuggestCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest [partial query]",
		Short: "Print autocomplete suggestions",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := root.engine()
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"query":       query,
				"suggestions": eng.Suggest(query),
			})
		},
	}
}

func newAskCmd(root *rootOptions) *cobra.Command {
	var policyID int
	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Answer a question from the dataset without a chat backend",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := root.engine()
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"query":    query,
				"response": chat.NewFallbackCompleter(eng).Answer(query, policyID, false),
			})
		},
	}
	cmd.Flags().IntVar(&policyID, "policy", 0, "id of the policy the question is about")
	return cmd
}

func newStatsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print budget statistics and the dataset overview",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := root.engine()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"categories": eng.Categories(),
				"dashboard":  eng.Dashboard(),
			})
		},
	}
}

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <file>",
		Short: "Extract and analyse a TXT or CSV policy document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			name := filepath.Base(args[0])
			processed, err := document.Process(name, mime.TypeByExtension(filepath.Ext(name)), data)
			if err != nil {
				return err
			}
			processed.ExtractedText = chat.Truncate(processed.ExtractedText, previewChars)
			return writeJSON(cmd.OutOrStdout(), processed)
		},
	}
}

// previewChars bounds the extracted text echoed by analyze.
const previewChars = 500

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
