package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-act-advisor-be/pkg/events"
	pktNats "ai-act-advisor-be/pkg/nats"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	eventsSubject string
	eventsDurable string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Tail advisor lifecycle events from NATS",
	Long: `Subscribe to advisor events on the NATS EVENTS stream and print them
until interrupted. Without --durable only new events are shown.`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().StringVar(&eventsSubject, "subject", pktNats.Subject("advisor.>"), "subject filter")
	eventsCmd.Flags().StringVar(&eventsDurable, "durable", "", "durable consumer name")
}

func runEvents(cmd *cobra.Command, args []string) error {
	if cfg.App.NatsURL == "" {
		exitWithError("NATS_URL is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
	if err != nil {
		return err
	}
	defer sub.Close()

	out := cmd.OutOrStdout()
	err = sub.Subscribe(ctx, eventsSubject, eventsDurable, func(ctx context.Context, e events.Event) error {
		printEvent(out, e)
		return nil
	})
	if err != nil {
		return err
	}

	color.Cyan("Listening on %s (Ctrl+C to stop)", eventsSubject)
	<-ctx.Done()
	return nil
}

func printEvent(out io.Writer, e events.Event) {
	data, err := json.Marshal(e.Payload())
	if err != nil {
		data = []byte(fmt.Sprintf("%v", e.Payload()))
	}
	ts := color.New(color.FgHiBlack).Sprint(e.Timestamp().Local().Format(time.TimeOnly))
	name := color.New(color.FgYellow, color.Bold).Sprint(e.EventType())
	fmt.Fprintf(out, "%s %s %s\n", ts, name, data)
}
