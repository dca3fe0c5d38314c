/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/itparc/inventory/config"
	"github.com/itparc/inventory/internal/events"
	"github.com/itparc/inventory/internal/mq"
	"github.com/spf13/cobra"
)

// eventsCmd groups commands that work with the event stream.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect inventory change events",
}

var eventsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print events from the configured broker as JSON lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		log := newLogger(cfg)
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("MQ_BACKEND is not configured")
		}
		defer queue.Close()

		out := json.NewEncoder(cmd.OutOrStdout())
		log.Info(ctx, "watching events", "backend", cfg.MQ.Backend, "topic", queue.Topic())

		err = queue.Subscribe(ctx, func(ctx context.Context, msg mq.Message) error {
			event, err := events.Decode(msg)
			if err != nil {
				log.Warn(ctx, "dropping malformed event", "message_id", msg.ID, "error", err)
				return nil
			}
			return out.Encode(event)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsWatchCmd)
}
