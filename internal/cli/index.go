package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"ai-act-advisor-be/internal/bootstrap"
	"ai-act-advisor-be/pkg/rag/index"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	indexQuery string
	indexTopK  int
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the passage index and query it",
	Long: `Load the regulation source, chunk and embed it, then print the
top-k passages for --query.

Examples:
  advisor-cli index --query "remote biometric identification"
  advisor-cli index --query "penalties" -k 3 --source data/ai_act.pdf`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexQuery, "query", "", "text to retrieve passages for")
	indexCmd.Flags().IntVarP(&indexTopK, "top", "k", 5, "number of passages to print")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	providers, err := bootstrap.NewProviders(cfg, sysLogger)
	if err != nil {
		return err
	}
	defer providers.Close()

	idx, err := bootstrap.BuildIndex(ctx, cfg, providers.Embedder, sysLogger)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Indexed %s into %d chunks\n", cfg.Corpus.SourcePath, idx.Len())

	if indexQuery == "" {
		return nil
	}

	hits, err := idx.Query(ctx, indexQuery, indexTopK)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	printHits(out, hits)
	return nil
}

func printHits(out io.Writer, hits index.Result) {
	if len(hits) == 0 {
		fmt.Fprintln(out, "No passages found.")
		return
	}
	for i, h := range hits {
		color.New(color.FgCyan, color.Bold).Fprintf(out, "\n#%d chunk %d  score %.3f", i+1, h.ChunkID, h.Score)
		if len(h.Articles) > 0 {
			fmt.Fprintf(out, "  [%s]", strings.Join(h.Articles, ", "))
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, snippet(h.Text, 400))
	}
}

func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	return string(r[:max]) + "..."
}
