package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/appetiteclub/frontdesk/pkg"
)

func newWatchCmd(g *globals) *cobra.Command {
	var (
		natsURL  string
		replay   bool
		consumer string
	)

	c := &cobra.Command{
		Use:   "watch",
		Short: "Follow reservation outcomes and status changes published by the front desk",
		Long: `Follow reservation outcomes and status changes published by the front desk.

With --replay the retained events are printed first, read through a durable
consumer so that a later replay resumes where this one stopped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if replay {
				return watchStream(cmd, g, natsURL, consumer)
			}

			sub, err := pkg.NewNATSSubscriber(natsURL, appName, g.logger())
			if err != nil {
				return err
			}
			defer sub.Close()

			w := &eventWriter{out: cmd.OutOrStdout()}
			ctx := cmd.Context()

			if err := sub.Subscribe(ctx, pkg.ReservationOutcomeTopic, w.outcome); err != nil {
				return err
			}
			if err := sub.Subscribe(ctx, pkg.ReservationStatusTopic, w.status); err != nil {
				return err
			}

			printf(cmd.ErrOrStderr(), "Watching %s and %s on %s (Ctrl+C to stop)\n",
				pkg.ReservationOutcomeTopic, pkg.ReservationStatusTopic, natsURL)
			<-ctx.Done()
			return nil
		},
	}

	c.Flags().StringVar(&natsURL, "nats-url", envOrDef("FRONTDESK_NATS_URL", "nats://localhost:4222"), "NATS server URL")
	c.Flags().BoolVar(&replay, "replay", false, "print retained events before following new ones")
	c.Flags().StringVar(&consumer, "consumer", appName, "durable consumer name used with --replay")
	return c
}

func watchStream(cmd *cobra.Command, g *globals, natsURL, consumer string) error {
	ctx := cmd.Context()

	stream, err := pkg.NewNATSStream(ctx, pkg.NATSStreamConfig{
		URL:      natsURL,
		Name:     appName,
		Consumer: consumer,
		Logger:   g.logger(),
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	w := &eventWriter{out: cmd.OutOrStdout()}

	retained, err := stream.Fetch(ctx, 0)
	if err != nil {
		return err
	}
	for _, msg := range retained {
		if err := w.dispatch(ctx, msg.Data); err != nil {
			g.logger().Debug("skipping unreadable event", "sequence", msg.Sequence, "error", err)
		}
	}
	printf(cmd.ErrOrStderr(), "Replayed %d events, following %s (Ctrl+C to stop)\n", len(retained), pkg.ReservationStreamName)

	if err := stream.SubscribeStream(ctx, w.dispatch); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// eventWriter serializes output from concurrent subscription callbacks.
type eventWriter struct {
	mu  sync.Mutex
	out io.Writer
}

func (w *eventWriter) outcome(ctx context.Context, data []byte) error {
	event, err := pkg.DecodeReservationOutcome(data)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	ts := event.OccurredAt.Local().Format("15:04:05")
	if event.EventType == pkg.EventReservationFailed {
		printf(w.out, "%s FAILED  table %s on %s at %s for %d: %s\n",
			ts, event.TableNumber, event.Date, event.Time, event.PartySize, event.Error)
		return nil
	}
	printf(w.out, "%s BOOKED  %s table %s on %s at %s for %d\n",
		ts, event.ReservationID, event.TableNumber, event.Date, event.Time, event.PartySize)
	return nil
}

func (w *eventWriter) status(ctx context.Context, data []byte) error {
	event, err := pkg.DecodeReservationStatus(data)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	printf(w.out, "%s STATUS  %s -> %s\n", event.OccurredAt.Local().Format("15:04:05"), event.ReservationID, event.Status)
	return nil
}

// dispatch routes a stream event by its type.
func (w *eventWriter) dispatch(ctx context.Context, data []byte) error {
	var head struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	switch head.EventType {
	case pkg.EventReservationCreated, pkg.EventReservationFailed:
		return w.outcome(ctx, data)
	case pkg.EventReservationStatusChanged:
		return w.status(ctx, data)
	default:
		return fmt.Errorf("unknown event type %q", head.EventType)
	}
}
