package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"rowq/internal/payload"
	"rowq/internal/queue"
)

func newPushCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "push <queue> <yaml-value>",
		Short: "Append a payload to a queue (use - to read the value from stdin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := args[1]
			if raw == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				raw = string(data)
			}
			value, err := payload.Decode(raw)
			if err != nil {
				return fmt.Errorf("parse payload: %w", err)
			}
			return ctx.withStore(func(store *queue.Store) error {
				if err := store.Enqueue(cmd.Context(), args[0], value); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Enqueued %s payload on %s\n", value.Kind(), strings.TrimSpace(args[0]))
				return nil
			})
		},
	}
}

func newPopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pop <queue>",
		Short: "Claim the oldest payload of a queue and print it as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				value, ok, err := store.ClaimAndFetch(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintf(cmd.ErrOrStderr(), "Queue %s is empty\n", strings.TrimSpace(args[0]))
					return nil
				}
				return writePayload(cmd.OutOrStdout(), value)
			})
		},
	}
}

func newBacklogCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "backlog [queue]",
		Short: "Count unclaimed rows (all queues when none is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				var (
					count int64
					err   error
				)
				if len(args) == 1 {
					count, err = store.Backlog(cmd.Context(), args[0])
				} else {
					count, err = store.BacklogAll(cmd.Context())
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), count)
				return nil
			})
		},
	}
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-queue row counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, buildStatsViews(stats))
				}
				if len(stats) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				writeTable(cmd.OutOrStdout(),
					[]string{"Queue", "Unclaimed", "In flight", "Processed", "Total"},
					buildStatsRows(stats),
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
				)
				return nil
			})
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var (
		queueName string
		processed bool
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue rows, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := queue.ListFilter{Queue: queueName, Limit: limit}
			if cmd.Flags().Changed("processed") {
				filter.Processed = &processed
			}
			return ctx.withStore(func(store *queue.Store) error {
				items, err := store.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				return printItems(cmd, ctx, items, "Queue is empty")
			})
		},
	}

	cmd.Flags().StringVarP(&queueName, "queue", "q", "", "Only rows of this queue")
	cmd.Flags().BoolVar(&processed, "processed", false, "Only processed rows (--processed=false for pending ones)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum rows to show (0 for all)")
	return cmd
}

func newStuckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stuck [queue]",
		Short: "List rows that were claimed but never marked processed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			}
			return ctx.withStore(func(store *queue.Store) error {
				items, err := store.Stuck(cmd.Context(), name)
				if err != nil {
					return err
				}
				return printItems(cmd, ctx, items, "No stuck rows")
			})
		},
	}
}

func newReleaseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "release <id>...",
		Short: "Clear the claim on stuck rows so they can be claimed again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				released, err := store.Release(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Released %d %s\n", released, pluralize(released, "row", "rows"))
				return nil
			})
		},
	}
}

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var olderThan string

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete processed rows older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			retention := queue.Seconds(int64(cfg.Sweeper.Retention))
			if strings.TrimSpace(olderThan) != "" {
				if retention, err = queue.ParseRetention(olderThan); err != nil {
					return err
				}
			}
			return ctx.withStore(func(store *queue.Store) error {
				removed, err := store.Cleanup(cmd.Context(), retention)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d processed %s older than %s\n",
					removed, pluralize(removed, "row", "rows"), retention)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&olderThan, "older-than", "", "Retention window in seconds or as a duration like 1h (default sweeper.retention)")
	return cmd
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid row id %q", arg)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("at least one row id is required")
	}
	return ids, nil
}

func printItems(cmd *cobra.Command, ctx *commandContext, items []*queue.Item, emptyMessage string) error {
	if ctx.JSONMode() {
		return writeJSON(cmd, buildItemViews(items))
	}
	if len(items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), emptyMessage)
		return nil
	}
	writeTable(cmd.OutOrStdout(),
		[]string{"ID", "Queue", "State", "Created", "Updated", "Payload"},
		buildItemRows(items),
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	)
	return nil
}
