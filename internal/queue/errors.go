package queue

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQueueName is returned when a queue name is blank after trimming.
	ErrEmptyQueueName = errors.New("queue name is empty")
	// ErrInvalidTable is returned when the configured table is not a plain SQL identifier.
	ErrInvalidTable = errors.New("invalid queue table name")
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)

// ErrorClassifier allows errors to declare their classification.
// Known kinds: "configuration", "payload". Anything else is treated as a
// store error.
type ErrorClassifier interface {
	ErrorKind() string
}

const (
	KindConfiguration = "configuration"
	KindPayload       = "payload"
	KindStore         = "store"
)

// Classify returns the ErrorKind of err, or KindStore when err does not
// implement ErrorClassifier. A nil error classifies as "".
func Classify(err error) string {
	if err == nil {
		return ""
	}
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		return classifier.ErrorKind()
	}
	return KindStore
}

// ConfigError reports an invalid retention policy. It is raised when a claim
// reaches the processing step, after the row was already claimed.
type ConfigError struct {
	Key   string
	Value string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: unsupported retention policy %q (expected %s or %s)", e.Key, e.Value, PolicyMark, PolicyDestroy)
}

func (e *ConfigError) ErrorKind() string { return KindConfiguration }

// PayloadError reports a row whose payload could not be decoded.
type PayloadError struct {
	ItemID int64
	Err    error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("decode payload of item %d: %v", e.ItemID, e.Err)
}

func (e *PayloadError) Unwrap() error { return e.Err }

func (e *PayloadError) ErrorKind() string { return KindPayload }
