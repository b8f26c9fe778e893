package storage

import "context"

// SessionStore — хранилище refresh-сессий и rate limit входа.
// Реализации: redis.Client, memory.Client (режим разработки без Redis).
type SessionStore interface {
	// SetSession сохраняет соответствие sessionID → userID с TTL сессии.
	SetSession(ctx context.Context, sessionID, userID string) error
	// GetSession возвращает userID по sessionID; "" если сессии нет или она истекла.
	GetSession(ctx context.Context, sessionID string) (string, error)
	// DeleteSession отзывает сессию (logout).
	DeleteSession(ctx context.Context, sessionID string) error
	// CheckLoginRateLimit учитывает попытку входа для ключа (username или IP)
	// и сообщает, не превышен ли лимит за окно.
	CheckLoginRateLimit(ctx context.Context, key string) (allowed bool, err error)
	Close() error
}
