package queue

import (
	"time"

	"rowq/internal/payload"
)

// Policy selects what happens to a row after it has been claimed and fetched.
type Policy string

const (
	// PolicyMark keeps the row with processed = true until Cleanup removes it.
	PolicyMark Policy = "mark"
	// PolicyDestroy deletes the row immediately.
	PolicyDestroy Policy = "destroy"
)

// Item is one queue row. Claim fills Payload; rows read through Get, List
// and Stuck carry only RawPayload until DecodePayload is called.
type Item struct {
	ID         int64
	QueueName  string
	Payload    payload.Value
	RawPayload string
	ClaimToken string
	Processed  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Claimed reports whether a consumer has taken the row.
func (i Item) Claimed() bool { return i.ClaimToken != "" }

// Stuck reports whether the row was claimed but never marked processed.
func (i Item) Stuck() bool { return i.ClaimToken != "" && !i.Processed }

// DecodePayload parses RawPayload into Payload. A failure is reported as
// *PayloadError and leaves Payload unchanged.
func (i *Item) DecodePayload() (payload.Value, error) {
	value, err := payload.Decode(i.RawPayload)
	if err != nil {
		return nil, &PayloadError{ItemID: i.ID, Err: err}
	}
	i.Payload = value
	return value, nil
}

// QueueStats summarizes one queue name.
type QueueStats struct {
	Queue     string
	Unclaimed int64
	InFlight  int64
	Processed int64
}

// Total returns the number of rows counted for the queue.
func (s QueueStats) Total() int64 { return s.Unclaimed + s.InFlight + s.Processed }

// ListFilter narrows List results. Zero values mean "any".
type ListFilter struct {
	Queue     string
	Processed *bool
	Limit     int
}

// DatabaseHealth describes database readiness and schema state.
type DatabaseHealth struct {
	Driver           string
	Location         string
	Table            string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	SchemaVersion    int
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	DataDirWritable  bool
	TotalItems       int64
	Error            string
}

// Healthy reports whether every check passed.
func (h DatabaseHealth) Healthy() bool {
	return h.DatabaseExists && h.DatabaseReadable && h.TableExists &&
		len(h.MissingColumns) == 0 && h.IntegrityCheck && h.DataDirWritable && h.Error == ""
}
