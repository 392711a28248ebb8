package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/eventdesk/internal/config"
	"github.com/alfredjeanlab/eventdesk/internal/notify"
	"github.com/alfredjeanlab/eventdesk/internal/ui"
)

func newWatchCmd() *cobra.Command {
	var natsURL string
	cmd := &cobra.Command{
		Use:     "watch",
		Short:   "Stream event changes published on NATS",
		GroupID: "events",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if natsURL == "" {
				natsURL = os.Getenv("EVENTDESK_NATS_URL")
			}
			if natsURL == "" {
				return fmt.Errorf("%w: --nats or EVENTDESK_NATS_URL", config.ErrMissingSetting)
			}

			errOut := cmd.ErrOrStderr()
			sub, err := notify.NewNATSSubscriber(natsURL,
				nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
					if err != nil {
						fmt.Fprintf(errOut, "disconnected from NATS: %v\n", err)
					}
				}),
				nats.ReconnectHandler(func(_ *nats.Conn) {
					fmt.Fprintln(errOut, "reconnected to NATS")
				}),
			)
			if err != nil {
				return err
			}
			defer sub.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(errOut, "Watching %s for event changes (Ctrl-C to stop)\n", natsURL)
			return watchLoop(ctx, sub, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&natsURL, "nats", "", "NATS server URL (default $EVENTDESK_NATS_URL)")
	return cmd
}

// watchLoop prints every message received on notify.TopicAll until ctx is
// done.
func watchLoop(ctx context.Context, sub notify.Subscriber, w io.Writer) error {
	ch, cancel, err := sub.Subscribe(notify.TopicAll)
	if err != nil {
		return err
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("subscription closed")
			}
			if jsonOutput {
				fmt.Fprintln(w, string(msg.Data))
				continue
			}
			fmt.Fprintln(w, formatMessage(msg, time.Now()))
		}
	}
}

// formatMessage renders one notification as a single line.
func formatMessage(msg notify.Message, now time.Time) string {
	stamp := ui.RenderMuted(now.Format("15:04:05"))
	action := strings.TrimPrefix(msg.Topic, "eventdesk.event.")

	switch msg.Topic {
	case notify.TopicEventCreated, notify.TopicEventUpdated:
		var p notify.EventCreated
		if err := json.Unmarshal(msg.Data, &p); err != nil || p.Event == nil {
			break
		}
		return fmt.Sprintf("%s %-7s %s (%d attributes)", stamp, action, renderID(p.Event.ID), len(p.Event.Attributes))
	case notify.TopicEventDeleted:
		var p notify.EventDeleted
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			break
		}
		return fmt.Sprintf("%s %-7s %s", stamp, action, renderID(p.EventID))
	}
	return fmt.Sprintf("%s %s %s", stamp, msg.Topic, string(msg.Data))
}
