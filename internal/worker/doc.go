// Package worker polls one queue and hands each claimed payload to a handler.
//
// A Worker runs Concurrency goroutines. Each one polls its Source, sleeps for
// PollInterval when the queue is empty and for ErrorRetryInterval after a
// source error. Handler errors are logged and counted; the row was already
// claimed and retired by the store, so nothing is retried.
package worker
