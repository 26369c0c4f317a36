package classifier

import "testing"

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Spelled out name", input: "English", expected: "en"},
		{name: "Name with region decoration", input: "English (US)", expected: "en"},
		{name: "ISO code passthrough", input: "en", expected: "en"},
		{name: "BCP 47 with region", input: "pt-BR", expected: "pt"},
		{name: "Synonym", input: "Mandarin", expected: "zh"},
		{name: "Uppercase code", input: "DE", expected: "de"},
		{name: "Empty input", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeLanguage(tt.input); got != tt.expected {
				t.Errorf("NormalizeLanguage(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSameLanguage(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected bool
	}{
		{name: "Name versus code", a: "English", b: "en", expected: true},
		{name: "Regional variant", a: "pt-BR", b: "Portuguese", expected: true},
		{name: "Different languages", a: "French", b: "German", expected: false},
		{name: "Empty side", a: "", b: "en", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameLanguage(tt.a, tt.b); got != tt.expected {
				t.Errorf("SameLanguage(%q, %q) = %v, expected %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}
