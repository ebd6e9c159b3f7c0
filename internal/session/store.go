package session

import (
	"context"
	"time"
)

// Record состояние одной сессии: промпт для следующего продолжения
// и время последней записи, по которому считается TTL.
type Record struct {
	Prompt    string    `json:"prompt"`
	Timestamp time.Time `json:"timestamp"`
}

// Store интерфейс хранилища сессий.
// Get возвращает живую запись; истёкшая или отсутствующая запись — это miss.
// Set создаёт или заменяет запись, проставляя Timestamp = now.
// Ошибки бэкенда не пробрасываются наружу: реализации обязаны
// деградировать сами (см. Fallback), поэтому сигнатуры без error.
type Store interface {
	Get(ctx context.Context, code string) (Record, bool)
	Set(ctx context.Context, code string, prompt string)
}
