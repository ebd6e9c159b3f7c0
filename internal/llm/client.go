package llm

import "context"

// Client минимальный публичный интерфейс клиента генерации текста.
type Client interface {
	GenerateContent(ctx context.Context, model string, prompt string) (string, error)
}
