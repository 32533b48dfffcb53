package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/baheth/baheth/internal/output"
	"github.com/baheth/baheth/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit     int
	mode      string
	refine    bool
	bookID    int
	books     bool
	ayahs     bool
	hadiths   bool
	cutoff    float64
	titleLang string
	format    string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the corpus from the command line",
		Long: `Run one search against the corpus and print the results.

Examples:
  baheth search "أركان الإيمان"
  baheth search "صلاة الاستخارة" --refine
  baheth search "الربا" --mode keyword --limit 5
  baheth search "آيات الصبر" --ayahs --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum results per content type")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "hybrid", "Search mode: hybrid, semantic, keyword")
	cmd.Flags().BoolVar(&opts.refine, "refine", false, "Expand the query and rerank across content types")
	cmd.Flags().IntVar(&opts.bookID, "book", 0, "Restrict book search to one book ID")
	cmd.Flags().BoolVar(&opts.books, "books", false, "Search book pages (default: all types)")
	cmd.Flags().BoolVar(&opts.ayahs, "ayahs", false, "Search Quran verses (default: all types)")
	cmd.Flags().BoolVar(&opts.hadiths, "hadiths", false, "Search Hadith narrations (default: all types)")
	cmd.Flags().Float64Var(&opts.cutoff, "cutoff", 0, "Semantic similarity cutoff override")
	cmd.Flags().StringVar(&opts.titleLang, "title-lang", "", "Language for translated book titles (e.g. en)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	a, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	resp, err := a.engine.Search(ctx, search.Request{
		Query:     query,
		Limit:     opts.limit,
		Mode:      search.Mode(opts.mode),
		Refine:    opts.refine,
		BookID:    opts.bookID,
		Books:     opts.books,
		Ayahs:     opts.ayahs,
		Hadiths:   opts.hadiths,
		Cutoff:    opts.cutoff,
		TitleLang: opts.titleLang,
	})
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	out := output.New(cmd.OutOrStdout())
	fmt.Fprintf(cmd.OutOrStdout(), "Results for: %s\n", query)
	out.Response(resp)
	return nil
}
