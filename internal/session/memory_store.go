package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore потокобезопасное in-process хранилище сессий с TTL.
// Истёкшие записи удаляются лениво при чтении и периодически фоновым свипером,
// по одному и тому же правилу: now - Timestamp > ttl.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Record
	ttl      time.Duration

	now  func() time.Time
	stop chan struct{}
	done chan struct{}
}

// NewMemoryStore создаёт хранилище и запускает фоновый свипер.
// Если ttl == 0, записи никогда не истекают и свипер ничего не удаляет.
// Хранилище нужно закрывать через Close при остановке процесса.
func NewMemoryStore(ttl, sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]Record),
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.sweepLoop(sweepInterval)
	return s
}

// Get возвращает живую запись по коду.
// Ленивая очистка: истёкшая запись удаляется и возвращается miss.
func (s *MemoryStore) Get(ctx context.Context, code string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[code]
	if !ok {
		return Record{}, false
	}
	if s.expired(rec, s.now()) {
		delete(s.sessions, code)
		return Record{}, false
	}
	return rec, true
}

// Set создаёт или заменяет запись, проставляя Timestamp текущим временем.
func (s *MemoryStore) Set(ctx context.Context, code string, prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[code] = Record{Prompt: prompt, Timestamp: s.now()}
}

// Close останавливает фоновый свипер и дожидается его завершения.
func (s *MemoryStore) Close() {
	close(s.stop)
	<-s.done
}

func (s *MemoryStore) expired(rec Record, now time.Time) bool {
	return s.ttl > 0 && now.Sub(rec.Timestamp) > s.ttl
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	defer close(s.done)

	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep(s.now())
		}
	}
}

// sweep удаляет все записи, истёкшие относительно now.
// Возвращает количество удалённых записей.
func (s *MemoryStore) sweep(now time.Time) int {
	if s.ttl == 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int
	for code, rec := range s.sessions {
		if s.expired(rec, now) {
			delete(s.sessions, code)
			deleted++
		}
	}
	return deleted
}
