package normalize

import (
	"testing"
	"unicode"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain number", "91234567", "91234567"},
		{"lowercase letters", "abc123", "ABC123"},
		{"mixed punctuation", "9123-4567/89", "9123456789"},
		{"interior spaces", " 9123 4567 ", "91234567"},
		{"empty", "", ""},
		{"whitespace only", "   \t ", ""},
		{"punctuation only", "-/()", ""},
		{"already normalized", "S01RETAIL", "S01RETAIL"},
		{"unicode letters", "büro-7", "BÜRO7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Identifier(tt.input); got != tt.expected {
				t.Errorf("Identifier(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

// Idempotence: normalize(normalize(s)) == normalize(s) for all strings.
func TestIdentifier_Idempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("identifier normalization is idempotent", prop.ForAll(
		func(s string) bool {
			once := Identifier(s)
			return Identifier(once) == once
		},
		gen.AnyString(),
	))

	properties.Property("normalized output is letters and digits only", prop.ForAll(
		func(s string) bool {
			for _, r := range Identifier(s) {
				if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"collapse whitespace", "  John   Doe ", "john doe"},
		{"lowercase", "JOHN DOE", "john doe"},
		{"keeps punctuation", "J. Doe-Smith", "j. doe-smith"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Name(tt.input); got != tt.expected {
				t.Errorf("Name(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestName_Idempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("name normalization is idempotent", prop.ForAll(
		func(s string) bool {
			once := Name(s)
			return Name(once) == once
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
