package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brewchat/internal/logger"
	"github.com/brewchat/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// msgCols selects a message joined with its sender and the aggregated
// delivered-to / read-by sets. Alias "m" for messages, "u" for users.
const msgCols = `m.id, m.room_id, m.sender_id, m.content, m.content_type,
	COALESCE(m.file_name,''), COALESCE(m.file_size,0), COALESCE(m.file_mime,''), COALESCE(m.file_url,''),
	m.created_at,
	u.id, u.username, u.avatar_color, COALESCE(u.status_message,''), u.is_online, u.last_seen_at,
	COALESCE((SELECT array_agg(d.user_id::text ORDER BY d.user_id) FROM message_delivery d WHERE d.message_id = m.id), '{}'),
	COALESCE((SELECT array_agg(rd.user_id::text ORDER BY rd.user_id) FROM message_reads rd WHERE rd.message_id = m.id), '{}')`

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func scanMessage(s interface{ Scan(dest ...any) error }, m *model.Message) error {
	var (
		fileName string
		fileSize int64
		fileMime string
		fileURL  string
	)
	sender := &model.UserPublic{}
	err := s.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Content, &m.ContentType,
		&fileName, &fileSize, &fileMime, &fileURL,
		&m.CreatedAt,
		&sender.ID, &sender.Username, &sender.AvatarColor, &sender.StatusMessage, &sender.IsOnline, &sender.LastSeenAt,
		&m.DeliveredTo, &m.ReadBy)
	if err != nil {
		return err
	}
	m.Sender = sender
	if m.ContentType != model.ContentTypeText {
		m.FileMeta = &model.FileMeta{
			FileName: fileName,
			FileSize: fileSize,
			MimeType: fileMime,
			URL:      fileURL,
		}
	}
	return nil
}

// Create persists the message together with the sender's own delivery and
// read marks in one transaction, so deliveredTo ⊇ {sender} holds from the
// first moment the row is visible.
func (r *MessageRepository) Create(ctx context.Context, m *model.Message) error {
	defer logger.DeferLogDuration("msg.Create", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("msgRepo.Create begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var fileName, fileMime, fileURL string
	var fileSize int64
	if m.FileMeta != nil {
		fileName, fileSize = m.FileMeta.FileName, m.FileMeta.FileSize
		fileMime, fileURL = m.FileMeta.MimeType, m.FileMeta.URL
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO messages (id, room_id, sender_id, content, content_type, file_name, file_size, file_mime, file_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.RoomID, m.SenderID, m.Content, m.ContentType, fileName, fileSize, fileMime, fileURL, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("msgRepo.Create insert: %w", err)
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO message_delivery (message_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		m.ID, m.SenderID,
	)
	if err != nil {
		return fmt.Errorf("msgRepo.Create delivery: %w", err)
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO message_reads (message_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		m.ID, m.SenderID,
	)
	if err != nil {
		return fmt.Errorf("msgRepo.Create read: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("msgRepo.Create commit: %w", err)
	}
	return nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*model.Message, error) {
	defer logger.DeferLogDuration("msg.GetByID", time.Now())()
	m := &model.Message{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+msgCols+`
		 FROM messages m
		 JOIN users u ON u.id = m.sender_id
		 WHERE m.id = $1`, id,
	)
	if err := scanMessage(row, m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("msgRepo.GetByID: %w", err)
	}
	return m, nil
}

// ListByRoom returns up to limit messages newest-first, optionally only
// those created before the given cursor.
func (r *MessageRepository) ListByRoom(ctx context.Context, roomID string, limit int, before time.Time) ([]model.Message, error) {
	defer logger.DeferLogDuration("msg.ListByRoom", time.Now())()
	sql := `SELECT ` + msgCols + `
		 FROM messages m
		 JOIN users u ON u.id = m.sender_id
		 WHERE m.room_id = $1`
	args := []any{roomID}
	if !before.IsZero() {
		sql += ` AND m.created_at < $2`
		args = append(args, before)
	}
	args = append(args, limit)
	sql += fmt.Sprintf(` ORDER BY m.created_at DESC LIMIT $%d`, len(args))

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.ListByRoom query: %w", err)
	}
	defer rows.Close()

	messages := make([]model.Message, 0, limit)
	for rows.Next() {
		var m model.Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, fmt.Errorf("msgRepo.ListByRoom scan: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("msgRepo.ListByRoom rows: %w", err)
	}
	return messages, nil
}

// AddDelivered unions the user into the message's delivered-to set.
// Re-adding is a no-op, so the set only grows.
func (r *MessageRepository) AddDelivered(ctx context.Context, messageID, userID string) error {
	defer logger.DeferLogDuration("msg.AddDelivered", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO message_delivery (message_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		messageID, userID,
	)
	if err != nil {
		return fmt.Errorf("msgRepo.AddDelivered: %w", err)
	}
	return nil
}

// AddRead unions the user into the read-by set of every listed message
// that belongs to the given room. Ids outside the room are skipped.
func (r *MessageRepository) AddRead(ctx context.Context, roomID, userID string, messageIDs []string) error {
	defer logger.DeferLogDuration("msg.AddRead", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO message_reads (message_id, user_id)
		 SELECT m.id, $2 FROM messages m WHERE m.id = ANY($1) AND m.room_id = $3
		 ON CONFLICT DO NOTHING`,
		messageIDs, userID, roomID,
	)
	if err != nil {
		return fmt.Errorf("msgRepo.AddRead: %w", err)
	}
	return nil
}
