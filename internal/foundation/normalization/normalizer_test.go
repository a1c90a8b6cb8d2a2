package normalization

import (
	"strings"
	"testing"
)

type direction string

const (
	directionUp   direction = "up"
	directionDown direction = "down"
)

func newDirectionNormalizer() *Normalizer[direction] {
	return NewNormalizer(map[string]direction{
		"up":   directionUp,
		"down": directionDown,
	}, directionUp)
}

func TestNormalizer_Normalize(t *testing.T) {
	n := newDirectionNormalizer()

	tests := []struct {
		name     string
		input    string
		expected direction
	}{
		{"exact match", "down", directionDown},
		{"case insensitive", "DOWN", directionDown},
		{"with spaces", "  down  ", directionDown},
		{"invalid input", "sideways", directionUp},
		{"empty input", "", directionUp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Normalize(tt.input); got != tt.expected {
				t.Errorf("Normalize(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizer_Parse(t *testing.T) {
	n := newDirectionNormalizer()

	got, err := n.Parse(" Down")
	if err != nil || got != directionDown {
		t.Fatalf("Parse(Down) = %v, %v", got, err)
	}

	got, err = n.Parse("")
	if err != nil || got != directionUp {
		t.Fatalf("Parse(\"\") = %v, %v; want default", got, err)
	}

	_, err = n.Parse("sideways")
	if err == nil {
		t.Fatal("expected error for unknown value")
	}
	if !strings.Contains(err.Error(), "down, up") {
		t.Errorf("error should list sorted options, got %q", err.Error())
	}
}

func TestNormalizer_ValidKeysIsCopy(t *testing.T) {
	n := newDirectionNormalizer()
	keys := n.ValidKeys()
	keys[0] = "mutated"
	if n.ValidKeys()[0] == "mutated" {
		t.Error("ValidKeys must return a copy")
	}
}
