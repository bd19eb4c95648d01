package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/alfredjeanlab/formdesk/internal/client"
	"github.com/alfredjeanlab/formdesk/internal/events"
	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <ticket-type>",
	Short: "Print a form each time it changes",
	Long: `Print a form, then print it again whenever another editor changes it.

With a NATS URL (--nats, FORMDESK_NATS_URL or the active remote) changes
arrive as events; otherwise the form is polled.`,
	GroupID: "forms",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tt := model.TicketType(args[0])
		interval, _ := cmd.Flags().GetDuration("interval")
		natsURL, _ := cmd.Flags().GetString("nats")
		if natsURL == "" {
			natsURL = os.Getenv("FORMDESK_NATS_URL")
		}
		if natsURL == "" {
			if r, ok := activeRemote(); ok {
				natsURL = r.NATSURL
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		w := &formWatcher{ticketType: tt, out: cmd.OutOrStdout()}
		if err := w.refresh(ctx); err != nil {
			return err
		}
		if natsURL != "" {
			return w.watchNATS(ctx, natsURL)
		}
		return w.watchPoll(ctx, interval)
	},
}

// formWatcher prints a form whenever its version moves.
type formWatcher struct {
	ticketType model.TicketType
	out        io.Writer
	version    int
}

func (w *formWatcher) watchNATS(ctx context.Context, natsURL string) error {
	// Signals a reconnect so changes missed while offline are picked up.
	reconnectCh := make(chan struct{}, 1)

	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats: disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("nats: reconnected")
			select {
			case reconnectCh <- struct{}{}:
			default:
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(events.TopicAllForms)
	if err != nil {
		return fmt.Errorf("subscribing to form events: %w", err)
	}
	defer cancel()

	debounce := time.NewTimer(0)
	debounce.Stop()
	select {
	case <-debounce.C:
	default:
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-ch:
			if !ok {
				return nil
			}
			if ref, err := events.DecodeFormRef(raw); err == nil && w.relevant(ref) {
				debounce.Reset(200 * time.Millisecond)
			}
		case <-reconnectCh:
			debounce.Reset(0)
		case <-debounce.C:
			if err := w.refresh(ctx); err != nil {
				return err
			}
		}
	}
}

func (w *formWatcher) watchPoll(ctx context.Context, interval time.Duration) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
		if err := w.refresh(ctx); err != nil {
			return err
		}
	}
}

// relevant reports whether an event may have moved the watched form.
func (w *formWatcher) relevant(ref events.FormRef) bool {
	return ref.TicketType == w.ticketType && (ref.Version == 0 || ref.Version > w.version)
}

func (w *formWatcher) refresh(ctx context.Context) error {
	f, err := reader.GetForm(ctx, w.ticketType)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		if client.IsNotFound(err) && w.version > 0 {
			w.version = 0
			fmt.Fprintf(w.out, "form %s deleted\n", w.ticketType)
			return nil
		}
		return fmt.Errorf("getting form: %w", err)
	}
	if f.Version == w.version {
		return nil
	}
	w.version = f.Version
	if jsonOutput {
		return printJSON(w.out, f)
	}
	fmt.Fprintf(w.out, "--- %s\n", time.Now().Format(timeFormat))
	printForm(w.out, f)
	return nil
}

func init() {
	watchCmd.Flags().Duration("interval", 5*time.Second, "poll interval without NATS")
	watchCmd.Flags().String("nats", "", "NATS URL for change events")
}
