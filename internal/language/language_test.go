package language

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"de-AT", "de"},
		{"pt-BR", "pt"},
		{"deu", "de"},
		{"ger", "de"},
		{"fra", "fr"},
		{"fre", "fr"},
		{"rum", "ro"},
		{"english", "en"},
		{"German", "de"},
		{"romanian", "ro"},
		{" japanese ", "ja"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if err != nil {
				t.Fatalf("Normalize(%q) error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeRejectsUnknown(t *testing.T) {
	for _, input := range []string{"", "  ", "klingon", "tlh", "12"} {
		if _, err := Normalize(input); !errors.Is(err, ErrUnknown) {
			t.Errorf("Normalize(%q) error = %v, want ErrUnknown", input, err)
		}
	}
}

func TestToISO3(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "eng"},
		{"de", "deu"},
		{"german", "deu"},
		{"fr", "fra"},
		{"ro", "ron"},
		{"", "und"},
		{"klingon", "und"},
	}
	for _, tt := range tests {
		if got := ToISO3(tt.input); got != tt.expected {
			t.Errorf("ToISO3(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"de", "German"},
		{"eng", "English"},
		{"es-MX", "Spanish"},
		{"", "Unknown"},
		{"xx", "XX"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.input); got != tt.expected {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
	if ToISO2("klingon") != "" {
		t.Error("ToISO2 should return empty for unknown input")
	}
}

func TestClosest(t *testing.T) {
	if got := Closest("de-CH,de;q=0.9,en;q=0.8"); got != "de" {
		t.Errorf("Closest = %q, want de", got)
	}
	if got := Closest(""); got != "" {
		t.Errorf("Closest(empty) = %q, want empty", got)
	}
}
