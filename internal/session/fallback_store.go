package session

import (
	"context"
	"log/slog"
)

// remote контракт удалённого бэкенда, который умеет отказывать.
type remote interface {
	get(ctx context.Context, code string) (Record, bool, error)
	set(ctx context.Context, code string, prompt string) error
}

// Fallback реализует Store поверх удалённого бэкенда и in-process запасного.
// Каждая операция ловит ошибку бэкенда сама: логирует и выполняет ту же
// операцию на запасном хранилище. Роутер получает единый контракт
// независимо от доступности Redis.
type Fallback struct {
	remote remote
	local  Store
	logger *slog.Logger
}

func NewFallback(remote *RedisStore, local Store, logger *slog.Logger) *Fallback {
	return &Fallback{
		remote: remote,
		local:  local,
		logger: logger,
	}
}

func (f *Fallback) Get(ctx context.Context, code string) (Record, bool) {
	rec, ok, err := f.remote.get(ctx, code)
	if err != nil {
		f.logger.Warn("session backend get failed, falling back",
			slog.String("code", code),
			slog.String("error", err.Error()))
		return f.local.Get(ctx, code)
	}
	return rec, ok
}

func (f *Fallback) Set(ctx context.Context, code string, prompt string) {
	if err := f.remote.set(ctx, code, prompt); err != nil {
		f.logger.Warn("session backend set failed, falling back",
			slog.String("code", code),
			slog.String("error", err.Error()))
		f.local.Set(ctx, code, prompt)
	}
}
