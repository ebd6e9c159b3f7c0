package session

import (
	"context"
	"math/rand/v2"
)

// Алфавит и границы длины короткого кода сессии.
const (
	codeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	MinCodeLen   = 3
	MaxCodeLen   = 6
)

// GenerateCode возвращает случайный код указанной длины из codeAlphabet.
func GenerateCode(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}
	return string(b)
}

// Mint генерирует код, которого нет среди живых записей в store.
// Коллизия с живым кодом приводит к повторной генерации, а не к перезаписи.
func Mint(ctx context.Context, store Store, length int) string {
	for {
		code := GenerateCode(length)
		if _, ok := store.Get(ctx, code); !ok {
			return code
		}
	}
}

// ValidCode проверяет, что s может быть кодом сессии:
// длина в пределах [MinCodeLen, MaxCodeLen] и только символы из codeAlphabet.
func ValidCode(s string) bool {
	if len(s) < MinCodeLen || len(s) > MaxCodeLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
