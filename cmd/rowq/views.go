package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"rowq/internal/payload"
	"rowq/internal/queue"
)

const payloadPreviewWidth = 60

type statsView struct {
	Queue     string `json:"queue"`
	Unclaimed int64  `json:"unclaimed"`
	InFlight  int64  `json:"in_flight"`
	Processed int64  `json:"processed"`
	Total     int64  `json:"total"`
}

type itemView struct {
	ID         int64  `json:"id"`
	Queue      string `json:"queue"`
	State      string `json:"state"`
	ClaimToken string `json:"claim_token,omitempty"`
	Payload    string `json:"payload"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func buildStatsViews(stats []queue.QueueStats) []statsView {
	views := make([]statsView, 0, len(stats))
	for _, s := range stats {
		views = append(views, statsView{
			Queue:     s.Queue,
			Unclaimed: s.Unclaimed,
			InFlight:  s.InFlight,
			Processed: s.Processed,
			Total:     s.Total(),
		})
	}
	return views
}

func buildStatsRows(stats []queue.QueueStats) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			s.Queue,
			strconv.FormatInt(s.Unclaimed, 10),
			strconv.FormatInt(s.InFlight, 10),
			strconv.FormatInt(s.Processed, 10),
			strconv.FormatInt(s.Total(), 10),
		})
	}
	return rows
}

func buildItemViews(items []*queue.Item) []itemView {
	views := make([]itemView, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		views = append(views, itemView{
			ID:         item.ID,
			Queue:      item.QueueName,
			State:      itemState(item),
			ClaimToken: item.ClaimToken,
			Payload:    item.RawPayload,
			CreatedAt:  formatTimestamp(item.CreatedAt),
			UpdatedAt:  formatTimestamp(item.UpdatedAt),
		})
	}
	return views
}

func buildItemRows(items []*queue.Item) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			item.QueueName,
			itemState(item),
			formatTimestamp(item.CreatedAt),
			formatTimestamp(item.UpdatedAt),
			previewPayload(item.RawPayload),
		})
	}
	return rows
}

func itemState(item *queue.Item) string {
	switch {
	case item.Processed:
		return "processed"
	case item.Claimed():
		return "claimed"
	default:
		return "unclaimed"
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// previewPayload folds a stored YAML document onto one line.
func previewPayload(raw string) string {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	preview := strings.Join(lines, " ")
	if len([]rune(preview)) > payloadPreviewWidth {
		preview = string([]rune(preview)[:payloadPreviewWidth-3]) + "..."
	}
	return preview
}

func writePayload(out io.Writer, value payload.Value) error {
	text, err := payload.Encode(value)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err = io.WriteString(out, text)
	return err
}

func pluralize(n int64, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
