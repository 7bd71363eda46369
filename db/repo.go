package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// LeadflowRepo is the SQLite-backed queue store behind the local transport.
// It emulates the SQS semantics the worker depends on: delayed sends, visibility timeouts and per-delivery receipt handles.
type LeadflowRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(dbPath string) (*LeadflowRepo, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// single writer, SQLite serializes them anyway and this avoids SQLITE_BUSY under concurrent batch acks
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &LeadflowRepo{
		db: db,
	}, nil
}

func (lr *LeadflowRepo) InsertMessage(ctx context.Context, newMessage *NewQueueMessage) error {
	query := `
		INSERT INTO queue_messages (id, queue, body, attributes, visible_after, sent_at)
		VALUES (?, ?, ?, ?, ?, ?);
	`

	_, err := lr.db.ExecContext(ctx, query,
		newMessage.Id,           // id
		newMessage.QueueName,    // queue
		newMessage.Body,         // body
		newMessage.Attributes,   // attributes
		newMessage.VisibleAfter, // visible_after
		newMessage.SentAt,       // sent_at
	)
	if err != nil {
		log.Error().Err(err).Str("queue", newMessage.QueueName).Msg("failed to insert queue message")
		return fmt.Errorf("insert queue message: %w", err)
	}
	return nil
}

// SelectMessagesForReceiving hides up to maxMessages visible messages for visibilityTimeoutMs and hands out a fresh receipt handle for each.
func (lr *LeadflowRepo) SelectMessagesForReceiving(ctx context.Context, queueName string, maxMessages int, visibilityTimeoutMs int64) ([]ReceivedQueueMessage, error) {
	nowMs := time.Now().UnixMilli()

	query := `
		UPDATE queue_messages
		SET
			receipt_handle = lower(hex(randomblob(16))),
			receive_count = receive_count + 1,
			visible_after = ?
		WHERE id IN (
			SELECT id
			FROM queue_messages
			WHERE queue = ?
			  AND visible_after <= ?
			ORDER BY sent_at ASC
			LIMIT ?
		)
		RETURNING id, body, attributes, receipt_handle, receive_count;`

	rows, err := lr.db.QueryContext(ctx, query,
		nowMs+visibilityTimeoutMs, // SET visible_after = ?
		queueName,                 // WHERE queue = ?
		nowMs,                     // AND visible_after <= ?
		maxMessages,               // LIMIT ?
	)
	if err != nil {
		log.Error().Err(err).Str("queue", queueName).Msg("failed to select messages for receiving")
		return nil, fmt.Errorf("select messages for receiving: %w", err)
	}
	defer rows.Close()

	var messages []ReceivedQueueMessage
	for rows.Next() {
		var msg ReceivedQueueMessage
		if err := rows.Scan(&msg.Id, &msg.Body, &msg.Attributes, &msg.ReceiptHandle, &msg.ReceiveCount); err != nil {
			return nil, fmt.Errorf("scan received message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate received messages: %w", err)
	}
	return messages, nil
}

// DeleteMessageByReceipt reports whether a message was deleted. False means the handle is stale:
// the message was deleted already or has been redelivered under a newer handle.
func (lr *LeadflowRepo) DeleteMessageByReceipt(ctx context.Context, queueName string, receiptHandle string) (bool, error) {
	query := `
		DELETE FROM queue_messages
		WHERE queue = ? AND receipt_handle = ?;`

	result, err := lr.db.ExecContext(ctx, query,
		queueName,     // WHERE queue = ?
		receiptHandle, // AND receipt_handle = ?
	)
	if err != nil {
		log.Error().Err(err).Str("queue", queueName).Msg("failed to delete message")
		return false, fmt.Errorf("delete message: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected after delete: %w", err)
	}
	return rowsAffected > 0, nil
}

// CountVisibleMessages matches SQS ApproximateNumberOfMessages: in-flight and delayed messages are not counted.
func (lr *LeadflowRepo) CountVisibleMessages(ctx context.Context, queueName string) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM queue_messages
		WHERE queue = ? AND visible_after <= ?;`

	var count int64
	err := lr.db.QueryRowContext(ctx, query,
		queueName,              // WHERE queue = ?
		time.Now().UnixMilli(), // AND visible_after <= ?
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count visible messages: %w", err)
	}
	return count, nil
}

// DeleteMessagesSentBefore purges messages regardless of visibility, returning how many were removed.
func (lr *LeadflowRepo) DeleteMessagesSentBefore(ctx context.Context, queueName string, sentBeforeMs int64) (int64, error) {
	query := `
		DELETE FROM queue_messages
		WHERE queue = ? AND sent_at < ?;`

	result, err := lr.db.ExecContext(ctx, query,
		queueName,    // WHERE queue = ?
		sentBeforeMs, // AND sent_at < ?
	)
	if err != nil {
		return 0, fmt.Errorf("delete messages sent before %d: %w", sentBeforeMs, err)
	}
	return result.RowsAffected()
}

func (lr *LeadflowRepo) Optimize(ctx context.Context) {
	_, err := lr.db.ExecContext(ctx, "PRAGMA optimize;")
	if err != nil {
		log.Warn().Err(err).Msg("failed to optimize database")
		return
	}
	log.Debug().Msg("database optimized")
}

// Checkpoint moves the WAL content back into the main database file and truncates the WAL,
// which otherwise only shrinks when no reader holds it open.
func (lr *LeadflowRepo) Checkpoint(ctx context.Context) error {
	_, err := lr.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE);")
	if err != nil {
		return fmt.Errorf("checkpoint wal: %w", err)
	}
	return nil
}

func (lr *LeadflowRepo) Ping(ctx context.Context) error {
	return lr.db.PingContext(ctx)
}

func (lr *LeadflowRepo) Close() error {
	return lr.db.Close()
}
