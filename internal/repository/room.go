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

const roomCols = `id, name, COALESCE(description,''), is_direct, avatar_emoji, created_by, last_message_id, created_at`

type RoomRepository struct {
	pool *pgxpool.Pool
}

func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

func scanRoom(s interface{ Scan(dest ...any) error }, rm *model.Room) error {
	return s.Scan(&rm.ID, &rm.Name, &rm.Description, &rm.IsDirect, &rm.AvatarEmoji, &rm.CreatedBy, &rm.LastMessageID, &rm.CreatedAt)
}

func (r *RoomRepository) Create(ctx context.Context, rm *model.Room) error {
	defer logger.DeferLogDuration("room.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO rooms (id, name, description, is_direct, avatar_emoji, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rm.ID, rm.Name, rm.Description, rm.IsDirect, rm.AvatarEmoji, rm.CreatedBy, rm.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("roomRepo.Create: %w", err)
	}
	return nil
}

func (r *RoomRepository) GetByID(ctx context.Context, id string) (*model.Room, error) {
	defer logger.DeferLogDuration("room.GetByID", time.Now())()
	rm := &model.Room{}
	row := r.pool.QueryRow(ctx, `SELECT `+roomCols+` FROM rooms WHERE id = $1`, id)
	if err := scanRoom(row, rm); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("roomRepo.GetByID: %w", err)
	}
	return rm, nil
}

// AddParticipant has set semantics: re-adding an existing participant is a no-op.
func (r *RoomRepository) AddParticipant(ctx context.Context, roomID, userID string, joinedAt time.Time) error {
	defer logger.DeferLogDuration("room.AddParticipant", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO room_participants (room_id, user_id, joined_at)
		 VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		roomID, userID, joinedAt,
	)
	if err != nil {
		return fmt.Errorf("roomRepo.AddParticipant: %w", err)
	}
	return nil
}

func (r *RoomRepository) GetParticipantIDs(ctx context.Context, roomID string) ([]string, error) {
	defer logger.DeferLogDuration("room.GetParticipantIDs", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT user_id FROM room_participants WHERE room_id = $1`, roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("roomRepo.GetParticipantIDs query: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, 8)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("roomRepo.GetParticipantIDs scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roomRepo.GetParticipantIDs rows: %w", err)
	}
	return ids, nil
}

func (r *RoomRepository) GetParticipants(ctx context.Context, roomID string) ([]model.UserPublic, error) {
	defer logger.DeferLogDuration("room.GetParticipants", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.username, u.avatar_color, COALESCE(u.status_message,''), u.is_online, u.last_seen_at
		 FROM users u
		 JOIN room_participants rp ON rp.user_id = u.id
		 WHERE rp.room_id = $1
		 ORDER BY rp.joined_at`, roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("roomRepo.GetParticipants query: %w", err)
	}
	defer rows.Close()

	users := make([]model.UserPublic, 0, 8)
	for rows.Next() {
		var u model.UserPublic
		if err := rows.Scan(&u.ID, &u.Username, &u.AvatarColor, &u.StatusMessage, &u.IsOnline, &u.LastSeenAt); err != nil {
			return nil, fmt.Errorf("roomRepo.GetParticipants scan: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roomRepo.GetParticipants rows: %w", err)
	}
	return users, nil
}

func (r *RoomRepository) IsParticipant(ctx context.Context, roomID, userID string) (bool, error) {
	defer logger.DeferLogDuration("room.IsParticipant", time.Now())()
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM room_participants WHERE room_id = $1 AND user_id = $2)`,
		roomID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("roomRepo.IsParticipant: %w", err)
	}
	return exists, nil
}

func (r *RoomRepository) GetRoomIDsForUser(ctx context.Context, userID string) ([]string, error) {
	defer logger.DeferLogDuration("room.GetRoomIDsForUser", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT room_id FROM room_participants WHERE user_id = $1`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("roomRepo.GetRoomIDsForUser query: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, 16)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("roomRepo.GetRoomIDsForUser scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roomRepo.GetRoomIDsForUser rows: %w", err)
	}
	return ids, nil
}

func (r *RoomRepository) GetUserRooms(ctx context.Context, userID string) ([]model.Room, error) {
	defer logger.DeferLogDuration("room.GetUserRooms", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.name, COALESCE(r.description,''), r.is_direct, r.avatar_emoji, r.created_by, r.last_message_id, r.created_at
		 FROM rooms r
		 JOIN room_participants rp ON rp.room_id = r.id
		 WHERE rp.user_id = $1
		 ORDER BY r.created_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("roomRepo.GetUserRooms query: %w", err)
	}
	defer rows.Close()

	rooms := make([]model.Room, 0, 16)
	for rows.Next() {
		var rm model.Room
		if err := scanRoom(rows, &rm); err != nil {
			return nil, fmt.Errorf("roomRepo.GetUserRooms scan: %w", err)
		}
		rooms = append(rooms, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roomRepo.GetUserRooms rows: %w", err)
	}
	return rooms, nil
}

// SetLastMessage advances the room's last-message pointer after a successful send.
func (r *RoomRepository) SetLastMessage(ctx context.Context, roomID, messageID string) error {
	defer logger.DeferLogDuration("room.SetLastMessage", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE rooms SET last_message_id = $1 WHERE id = $2`,
		messageID, roomID,
	)
	if err != nil {
		return fmt.Errorf("roomRepo.SetLastMessage: %w", err)
	}
	return nil
}

// FindDirectRoom returns the two-person direct room between the given users, if any.
func (r *RoomRepository) FindDirectRoom(ctx context.Context, userID1, userID2 string) (*model.Room, error) {
	defer logger.DeferLogDuration("room.FindDirectRoom", time.Now())()
	rm := &model.Room{}
	row := r.pool.QueryRow(ctx,
		`SELECT r.id, r.name, COALESCE(r.description,''), r.is_direct, r.avatar_emoji, r.created_by, r.last_message_id, r.created_at
		 FROM rooms r
		 WHERE r.is_direct
		   AND EXISTS (SELECT 1 FROM room_participants WHERE room_id = r.id AND user_id = $1)
		   AND EXISTS (SELECT 1 FROM room_participants WHERE room_id = r.id AND user_id = $2)`,
		userID1, userID2,
	)
	if err := scanRoom(row, rm); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("roomRepo.FindDirectRoom: %w", err)
	}
	return rm, nil
}
