package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	defaultBaseDelay    = 500 * time.Millisecond
	defaultMaxDelay     = 8 * time.Second
	defaultMultiplier   = 2.0
	defaultMaxAttempts  = 3
	defaultJitter       = 0.30
	defaultSnippetLimit = 200
)

type Sleeper func(ctx context.Context, d time.Duration) error
type NowFunc func() time.Time
type RandFunc func() float64

// Policy параметры повторов для HTTP-вызовов генеративного API.
// Нулевые поля заменяются значениями по умолчанию; Sleep/Now/Rand
// подменяются в тестах.
type Policy struct {
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	MaxAttempts  int
	Jitter       float64
	SnippetLimit int
	Sleep        Sleeper
	Now          NowFunc
	Rand         RandFunc
}

func DefaultPolicy() Policy {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return Policy{
		BaseDelay:    defaultBaseDelay,
		MaxDelay:     defaultMaxDelay,
		Multiplier:   defaultMultiplier,
		MaxAttempts:  defaultMaxAttempts,
		Jitter:       defaultJitter,
		SnippetLimit: defaultSnippetLimit,
		Sleep:        defaultSleep,
		Now:          time.Now,
		Rand:         rng.Float64,
	}
}

// HTTPStatusError транзиентный HTTP-статус (429/5xx) с фрагментом тела ответа.
type HTTPStatusError struct {
	StatusCode  int
	BodySnippet string
}

func (e *HTTPStatusError) Error() string {
	if e.BodySnippet == "" {
		return fmt.Sprintf("transient status %d", e.StatusCode)
	}
	return fmt.Sprintf("transient status %d: %s", e.StatusCode, e.BodySnippet)
}

// ExhaustedError возвращается, когда все попытки исчерпаны.
type ExhaustedError struct {
	Cause    error
	Attempts int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry attempts exhausted after %d: %v", e.Attempts, e.Cause)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Cause
}

// DoHTTP выполняет do до успеха или исчерпания попыток.
// Повторяются только транзиентные сбои: 429/5xx и восстановимые сетевые
// ошибки. Учитывается заголовок Retry-After, задержка растёт экспоненциально
// с джиттером. Каждый повтор логируется.
func DoHTTP(ctx context.Context, policy Policy, logger *slog.Logger, do func(ctx context.Context) (*http.Response, []byte, error)) (*http.Response, []byte, error) {
	policy = withDefaults(policy)

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		resp, body, err := do(ctx)
		if err != nil {
			if !retryableNetErr(ctx, err) {
				return resp, body, err
			}
			if attempt == policy.MaxAttempts {
				return resp, body, &ExhaustedError{Cause: err, Attempts: attempt}
			}
			delay := policy.jitterDelay(policy.backoffDelay(attempt))
			logRetry(logger, attempt, policy.MaxAttempts, 0, delay, "")
			if err := policy.Sleep(ctx, delay); err != nil {
				return nil, nil, err
			}
			continue
		}

		if resp == nil {
			return nil, nil, errors.New("nil response from http client")
		}

		if retryableStatus(resp.StatusCode) {
			snippet := bodySnippet(body, policy.SnippetLimit)
			if attempt == policy.MaxAttempts {
				return resp, body, &ExhaustedError{
					Cause:    &HTTPStatusError{StatusCode: resp.StatusCode, BodySnippet: snippet},
					Attempts: attempt,
				}
			}
			delay := policy.nextDelay(attempt, resp.Header)
			logRetry(logger, attempt, policy.MaxAttempts, resp.StatusCode, delay, snippet)
			if err := policy.Sleep(ctx, delay); err != nil {
				return nil, nil, err
			}
			continue
		}

		return resp, body, nil
	}

	return nil, nil, errors.New("retry attempts exhausted")
}

func withDefaults(p Policy) Policy {
	if p.BaseDelay == 0 {
		p.BaseDelay = defaultBaseDelay
	}
	if p.MaxDelay == 0 {
		p.MaxDelay = defaultMaxDelay
	}
	if p.Multiplier == 0 {
		p.Multiplier = defaultMultiplier
	}
	if p.MaxAttempts == 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.Jitter == 0 {
		p.Jitter = defaultJitter
	}
	if p.SnippetLimit == 0 {
		p.SnippetLimit = defaultSnippetLimit
	}
	if p.Sleep == nil {
		p.Sleep = defaultSleep
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.Rand == nil {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		p.Rand = rng.Float64
	}
	return p
}

func (p Policy) backoffDelay(retryIndex int) time.Duration {
	if retryIndex < 1 {
		retryIndex = 1
	}
	delay := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(retryIndex-1))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return time.Duration(delay)
}

func (p Policy) jitterDelay(delay time.Duration) time.Duration {
	if delay <= 0 || p.Jitter <= 0 {
		return delay
	}
	factor := 1 + (p.Rand()*2-1)*p.Jitter
	adjusted := float64(delay) * factor
	if adjusted < 0 {
		adjusted = 0
	}
	return time.Duration(adjusted)
}

func (p Policy) nextDelay(retryIndex int, header http.Header) time.Duration {
	if retryAfter, ok := parseRetryAfter(header, p.Now()); ok {
		if retryAfter > p.MaxDelay {
			return p.MaxDelay
		}
		return retryAfter
	}
	return p.jitterDelay(p.backoffDelay(retryIndex))
}

func defaultSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(header http.Header, now time.Time) (time.Duration, bool) {
	value := strings.TrimSpace(header.Get("Retry-After"))
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, true
		}
		return time.Duration(seconds) * time.Second, true
	}
	if parsed, err := http.ParseTime(value); err == nil {
		delay := parsed.Sub(now)
		if delay < 0 {
			delay = 0
		}
		return delay, true
	}
	return 0, false
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func retryableNetErr(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		// Дедлайн самого запроса, не родительского контекста.
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection reset")
}

func logRetry(logger *slog.Logger, attempt, maxAttempts, status int, delay time.Duration, snippet string) {
	if logger == nil {
		return
	}
	args := []any{
		slog.Int("attempt", attempt),
		slog.Int("max_attempts", maxAttempts),
		slog.Duration("retry_in", delay),
	}
	if status > 0 {
		args = append(args, slog.Int("status", status))
	}
	if snippet != "" {
		args = append(args, slog.String("snippet", snippet))
	}
	logger.Warn("retrying request", args...)
}

func bodySnippet(body []byte, limit int) string {
	if len(body) == 0 || limit <= 0 {
		return ""
	}
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit])
}
