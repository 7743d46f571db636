package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"rowq/internal/queue"
)

func main() {
	cmd := newRootCommand()
	err := cmd.Execute()
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "rowq: %v\n", err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps command errors onto the process status scripts can branch on:
// 2 for a bad retention policy, 3 for an unhealthy database, 4 for an
// undecodable payload and 1 for anything else.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUnhealthy):
		return 3
	}
	switch queue.Classify(err) {
	case queue.KindConfiguration:
		return 2
	case queue.KindPayload:
		return 4
	default:
		return 1
	}
}
