package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"rowq/internal/payload"
	"rowq/internal/queue"
	"rowq/internal/worker"
)

func newWorkCommand(ctx *commandContext) *cobra.Command {
	var (
		queueName   string
		concurrency int
		once        bool
	)

	cmd := &cobra.Command{
		Use:   "work",
		Short: "Poll a queue and print each claimed payload as a YAML document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := worker.OptionsFromConfig(cfg)
			if strings.TrimSpace(queueName) != "" {
				opts.Name = strings.TrimSpace(queueName)
			}
			if opts.Name == "" {
				return errors.New("queue name is required (pass --queue or set worker.queue)")
			}
			if cmd.Flags().Changed("concurrency") {
				opts.Concurrency = concurrency
			}
			logger, err := ctx.logger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			return ctx.withStore(func(store *queue.Store) error {
				w := worker.New(store.Scope(opts.Name), printingHandler(cmd.OutOrStdout()), opts, logger)
				if once {
					found, err := w.Poll(cmd.Context())
					if err != nil {
						return err
					}
					if !found {
						fmt.Fprintf(cmd.ErrOrStderr(), "Queue %s is empty\n", opts.Name)
					}
					return nil
				}

				runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer cancel()
				if err := w.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				stats := w.Stats()
				fmt.Fprintf(cmd.ErrOrStderr(), "Processed %d, failed %d\n", stats.Processed, stats.Failed)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&queueName, "queue", "q", "", "Queue to poll (default worker.queue)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "Number of polling goroutines (default worker.concurrency)")
	cmd.Flags().BoolVar(&once, "once", false, "Poll a single time and exit")
	return cmd
}

// printingHandler writes each payload as its own YAML document.
func printingHandler(out io.Writer) worker.Handler {
	var mu sync.Mutex
	return func(_ context.Context, value payload.Value) error {
		text, err := payload.Encode(value)
		if err != nil {
			return err
		}
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		mu.Lock()
		defer mu.Unlock()
		_, err = io.WriteString(out, "---\n"+text)
		return err
	}
}
