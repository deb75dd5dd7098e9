package generator

import (
	"math/rand/v2"
	"strings"
)

// charset — URL-safe алфавит кодов: буквы, цифры, дефис и подчёркивание
const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_"

// Generator создает случайные кандидаты коротких кодов фиксированной длины
type Generator struct {
	length int
}

func New(length int) Generator {
	return Generator{length: length}
}

// Generate создает случайный короткий код.
// Уникальность здесь не проверяется — это забота аллокатора и БД.
func (g Generator) Generate() string {
	var result strings.Builder
	result.Grow(g.length)
	l := len(charset)

	for range g.length {
		result.WriteByte(charset[rand.IntN(l)])
	}

	return result.String()
}
