package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"rowq/internal/queue"
)

var errUnhealthy = errors.New("queue database is unhealthy")

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check queue database health (schema, integrity, columns)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					if err := writeJSON(cmd, health); err != nil {
						return err
					}
				} else {
					out := cmd.OutOrStdout()
					fmt.Fprintf(out, "Driver: %s\n", health.Driver)
					fmt.Fprintf(out, "Location: %s\n", health.Location)
					fmt.Fprintf(out, "Database exists: %s\n", yesNo(health.DatabaseExists))
					fmt.Fprintf(out, "Readable: %s\n", yesNo(health.DatabaseReadable))
					fmt.Fprintf(out, "Schema version: %d\n", health.SchemaVersion)
					fmt.Fprintf(out, "%s table present: %s\n", health.Table, yesNo(health.TableExists))
					if len(health.ColumnsPresent) > 0 {
						cols := append([]string(nil), health.ColumnsPresent...)
						sort.Strings(cols)
						fmt.Fprintf(out, "Columns: %s\n", strings.Join(cols, ", "))
					}
					if len(health.MissingColumns) > 0 {
						missing := append([]string(nil), health.MissingColumns...)
						sort.Strings(missing)
						fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(missing, ", "))
					} else {
						fmt.Fprintln(out, "Missing columns: none")
					}
					fmt.Fprintf(out, "Integrity check: %s\n", yesNo(health.IntegrityCheck))
					fmt.Fprintf(out, "Data directory writable: %s\n", yesNo(health.DataDirWritable))
					fmt.Fprintf(out, "Total items: %d\n", health.TotalItems)
					if health.Error != "" {
						fmt.Fprintf(out, "Error: %s\n", health.Error)
					}
				}
				if !health.Healthy() {
					return errUnhealthy
				}
				return nil
			})
		},
	}
}
