package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rowq/internal/logging"
	"rowq/internal/payload"
)

// Enqueue appends value to the named queue as an unclaimed, unprocessed row.
func (s *Store) Enqueue(ctx context.Context, queueName string, value payload.Value) error {
	name, err := normalizeQueueName(queueName)
	if err != nil {
		return err
	}
	encoded, err := payload.Encode(value)
	if err != nil {
		return err
	}
	now := s.timestamp()
	if _, err := s.execWithRetry(ctx, s.q.insert, name, encoded, false, now, now); err != nil {
		return fmt.Errorf("enqueue to %q: %w", name, err)
	}
	return nil
}

// ClaimAndFetch takes the oldest unclaimed row of the queue and returns its
// payload. The boolean is false when the queue has no unclaimed rows.
//
// Once the claim UPDATE succeeds the row belongs to this caller. If decoding
// or the retention step fails afterwards, the row keeps its claim token with
// processed = false and is not handed out again until Release is called.
func (s *Store) ClaimAndFetch(ctx context.Context, queueName string) (payload.Value, bool, error) {
	item, err := s.Claim(ctx, queueName)
	if err != nil || item == nil {
		return nil, false, err
	}
	return item.Payload, true, nil
}

// Claim is ClaimAndFetch returning the whole row. It returns nil, nil when
// the queue is empty.
func (s *Store) Claim(ctx context.Context, queueName string) (*Item, error) {
	ctx = ensureContext(ctx)
	name, err := normalizeQueueName(queueName)
	if err != nil {
		return nil, err
	}

	tok := s.tokens.Generate()
	res, err := s.execWithRetry(ctx, s.q.claim, tok.String(), s.timestamp(), name)
	if err != nil {
		return nil, fmt.Errorf("claim from %q: %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("claim from %q: rows affected: %w", name, err)
	}
	if affected == 0 {
		return nil, nil
	}

	item, err := scanItem(s.db.QueryRowContext(ctx, s.q.byToken, tok.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = fmt.Errorf("claimed row with token %s disappeared", tok)
		}
		s.logger.Warn("claimed row could not be fetched",
			logging.String(logging.FieldQueue, name),
			logging.String("claim_token", tok.String()),
			logging.String(logging.FieldEventType, "claim_fetch_failed"),
			logging.Error(err),
		)
		return nil, fmt.Errorf("fetch claimed row from %q: %w", name, err)
	}

	if _, err := item.DecodePayload(); err != nil {
		s.logStuck(item, err)
		return nil, err
	}

	if err := s.finish(ctx, item); err != nil {
		s.logStuck(item, err)
		return nil, err
	}

	s.logger.Debug("claimed row",
		logging.String(logging.FieldQueue, name),
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String("policy", string(s.policy)),
	)
	return item, nil
}

// finish applies the retention policy to a freshly claimed row.
func (s *Store) finish(ctx context.Context, item *Item) error {
	var (
		query string
		args  []any
	)
	now := s.now()
	switch s.policy {
	case PolicyMark:
		query = s.q.markDone
		args = []any{true, formatTime(now), item.ID, item.ClaimToken}
	case PolicyDestroy:
		query = s.q.deleteDone
		args = []any{item.ID, item.ClaimToken}
	default:
		return &ConfigError{Key: "queue.on_processed", Value: string(s.policy)}
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n != 1 {
			return fmt.Errorf("claimed row %d changed underneath (%d rows affected)", item.ID, n)
		}
		if s.afterProcessed != nil {
			return s.afterProcessed(ctx, item)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply %s policy to item %d: %w", s.policy, item.ID, err)
	}
	if s.policy == PolicyMark {
		item.Processed = true
		item.UpdatedAt = now.UTC()
	}
	return nil
}

func (s *Store) logStuck(item *Item, err error) {
	s.logger.Warn("claimed row left unprocessed",
		logging.String(logging.FieldQueue, item.QueueName),
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String("claim_token", item.ClaimToken),
		logging.String(logging.FieldEventType, "claim_stuck"),
		logging.String(logging.FieldErrorHint, fmt.Sprintf("fix the cause, then run rowq release %d", item.ID)),
		logging.Error(err),
	)
}

// Backlog counts unclaimed rows in the named queue.
func (s *Store) Backlog(ctx context.Context, queueName string) (int64, error) {
	name, err := normalizeQueueName(queueName)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := s.db.QueryRowContext(ensureContext(ctx), s.q.backlog, name).Scan(&count); err != nil {
		return 0, fmt.Errorf("backlog of %q: %w", name, err)
	}
	return count, nil
}

// BacklogAll counts unclaimed rows across every queue.
func (s *Store) BacklogAll(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ensureContext(ctx), s.q.backlogAll).Scan(&count); err != nil {
		return 0, fmt.Errorf("backlog: %w", err)
	}
	return count, nil
}

// Apply claims one row from the queue and passes its payload to fn. When the
// queue is empty fn is not called and the boolean is false. An error from fn
// is returned as is; the claim and retention step have already committed.
func Apply[T any](ctx context.Context, s *Store, queueName string, fn func(payload.Value) (T, error)) (T, bool, error) {
	var zero T
	value, ok, err := s.ClaimAndFetch(ctx, queueName)
	if err != nil || !ok {
		return zero, false, err
	}
	result, err := fn(value)
	if err != nil {
		return zero, true, err
	}
	return result, true, nil
}
