package services

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/akozhin/matchup/repositories"
)

const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const (
	initialCodeLength = 6  // длина кода вместе с префиксом
	triesPerLength    = 10 // коллизий подряд до удлинения кода
	maxCodeAttempts   = 50 // жёсткий предел на все попытки
)

// CodeExistsFunc спрашивает хранилище, занят ли код. Уникальный индекс в БД
// остаётся решающей защитой от гонок; цикл лишь экономит ретраи.
type CodeExistsFunc func(ctx context.Context, exec repositories.SQLExecutor, code string) (bool, error)

type CodeGenerator struct{}

func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{}
}

// Generate возвращает код длиной length: префикс плюс length-1 случайных
// символов Base62. Код публичный, криптостойкость не требуется.
func (g *CodeGenerator) Generate(prefix byte, length int) string {
	if length < 2 {
		length = 2
	}
	b := make([]byte, length)
	b[0] = prefix

	randomBytes := make([]byte, length-1)
	if _, err := rand.Read(randomBytes); err != nil {
		// crypto/rand без энтропии — мёртвая система; отдаём хоть что-то,
		// уникальность всё равно проверит вызывающий цикл и индекс БД.
		for i := 1; i < length; i++ {
			b[i] = codeAlphabet[0]
		}
		return string(b)
	}
	for i, rb := range randomBytes {
		b[i+1] = codeAlphabet[int(rb)%len(codeAlphabet)]
	}
	return string(b)
}

// MintUnique подбирает свободный код: начинает с длины 6, после 10 коллизий
// подряд удлиняет код на один символ и сбрасывает счётчик. Всего не больше
// 50 попыток, дальше ErrCodeExhausted.
func (g *CodeGenerator) MintUnique(ctx context.Context, exec repositories.SQLExecutor, prefix byte, exists CodeExistsFunc) (string, error) {
	length := initialCodeLength
	tries := 0

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		if tries >= triesPerLength {
			tries = 0
			length++
		}
		tries++

		code := g.Generate(prefix, length)
		taken, err := exists(ctx, exec, code)
		if err != nil {
			return "", fmt.Errorf("failed to check public code %q: %w", code, err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrCodeExhausted
}
