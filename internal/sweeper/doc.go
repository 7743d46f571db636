// Package sweeper periodically removes processed queue rows that are older
// than the retention window.
//
// A Sweeper holds a flock-based lock file while running, so a second sweeper
// pointed at the same data directory refuses to start.
package sweeper
