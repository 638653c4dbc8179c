package flagservice

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/Black-And-White-Club/ctf-engine/config"
)

// Generator produces flag text: prefix, Length symbols from Alphabet, suffix.
type Generator struct {
	Prefix   string
	Alphabet string
	Length   int
	Suffix   string
}

// NewGenerator builds a Generator from the flag config section. An empty
// alphabet or length falls back to the default. The prefix is used as given.
func NewGenerator(cfg config.FlagConfig) *Generator {
	g := &Generator{
		Prefix:   cfg.Prefix,
		Alphabet: cfg.Alphabet,
		Length:   cfg.Length,
		Suffix:   cfg.Suffix,
	}
	if g.Alphabet == "" {
		g.Alphabet = config.DefaultFlagAlphabet
	}
	if g.Length <= 0 {
		g.Length = config.DefaultFlagLength
	}
	return g
}

// Next returns a fresh flag string.
func (g *Generator) Next() (string, error) {
	if g.Prefix == "" {
		return "", fmt.Errorf("flag prefix is empty")
	}
	symbols := []rune(g.Alphabet)
	if len(symbols) == 0 {
		return "", fmt.Errorf("flag alphabet is empty")
	}
	n := big.NewInt(int64(len(symbols)))

	var b strings.Builder
	b.Grow(len(g.Prefix) + g.Length + len(g.Suffix))
	b.WriteString(g.Prefix)
	for range g.Length {
		i, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", fmt.Errorf("flag generator: %w", err)
		}
		b.WriteRune(symbols[i.Int64()])
	}
	b.WriteString(g.Suffix)
	return b.String(), nil
}
