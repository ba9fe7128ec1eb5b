package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"ai-act-advisor-be/internal/bootstrap"
	"ai-act-advisor-be/pkg/rag/interview"
	"ai-act-advisor-be/pkg/rag/report"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run an interactive compliance interview in the terminal",
	Long: `Build the passage index, then interview you about your AI system until
the final assessment report is produced.

Type 'reset' to start over and 'exit' to quit.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	providers, err := bootstrap.NewProviders(cfg, sysLogger)
	if err != nil {
		return err
	}
	defer providers.Close()

	color.Cyan("Building passage index from %s ...", cfg.Corpus.SourcePath)
	idx, err := bootstrap.BuildIndex(ctx, cfg, providers.Embedder, sysLogger)
	if err != nil {
		return err
	}
	color.Cyan("Index ready: %d chunks\n", idx.Len())

	engine := bootstrap.NewEngine(cfg, providers, idx, sysLogger)
	return chatLoop(ctx, engine, os.Stdin, cmd.OutOrStdout())
}

func chatLoop(ctx context.Context, engine *interview.Engine, in io.Reader, out io.Writer) error {
	session := engine.Fresh(uuid.NewString())
	printAssistant(out, engine.Opening())

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, color.GreenString("\nyou> "))
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		next, result, err := engine.HandleTurn(ctx, session, line)
		switch {
		case errors.Is(err, interview.ErrSessionDone):
			color.New(color.FgYellow).Fprintln(out, "The assessment is complete. Type 'reset' to start a new one or 'exit' to quit.")
			continue
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			color.New(color.FgRed).Fprintf(out, "Turn failed, please retry: %v\n", err)
			continue
		}
		session = next

		printAssistant(out, result.Message)
		if result.IsDone() && result.Report != nil {
			printVerdict(out, result.Report)
		}
	}
}

func printAssistant(out io.Writer, msg string) {
	fmt.Fprintln(out)
	color.New(color.FgCyan, color.Bold).Fprint(out, "advisor> ")
	fmt.Fprintln(out, msg)
}

func printVerdict(out io.Writer, r *report.StructuredReport) {
	c := color.New(color.FgGreen, color.Bold)
	switch r.RiskLevel {
	case report.RiskProhibited:
		c = color.New(color.FgRed, color.Bold)
	case report.RiskHigh:
		c = color.New(color.FgYellow, color.Bold)
	case report.RiskUnknown:
		c = color.New(color.FgMagenta, color.Bold)
	}
	c.Fprintf(out, "\nVerdict: %s", r.RiskLevel.Label())
	if r.Confidence != nil {
		c.Fprintf(out, " (confidence %.2f)", *r.Confidence)
	}
	fmt.Fprintln(out)
}
