package strings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{"empty", "", 0, ""},
		{"plain text untouched", "Maria Silva", 0, "Maria Silva"},
		{"tags removed", "<b>Maria</b>   da  Silva", 0, "Maria da Silva"},
		{"script body dropped", "<script>alert(1)</script>Ana", 0, "Ana"},
		{"entities decoded", "Ana &amp; Bia", 0, "Ana & Bia"},
		{"newlines collapsed", "  Rua\n\tdas Flores  ", 0, "Rua das Flores"},
		{"truncated by rune", "Conceição", 7, "Conceiç"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.input, tt.max))
		})
	}

	long := strings.Repeat("a", 200)
	assert.Len(t, CleanText(long, 0), DefaultMaxTextLen)
}

func TestFold(t *testing.T) {
	assert.Equal(t, "odio", Fold("Ódio"))
	assert.Equal(t, "desgraca", Fold("DESGRAÇA"))
	assert.Equal(t, "sao paulo", Fold("São Paulo"))
}

func TestContainsAnyFolded(t *testing.T) {
	words := []string{"golpe", "pix gratis"}
	assert.True(t, ContainsAnyFolded(words, "Maria", "isso é um GOLPE"))
	assert.True(t, ContainsAnyFolded(words, "PIX Grátis aqui"))
	assert.False(t, ContainsAnyFolded(words, "Maria", "", "Kit Básico"))
	assert.False(t, ContainsAnyFolded(nil, "golpe"))
}
