package middleware

import "testing"

func TestNormalizeToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain token", "abc123", "abc123"},
		{"bearer prefix", "Bearer abc123", "abc123"},
		{"lowercase bearer", "bearer abc123", "abc123"},
		{"surrounding spaces", "  Bearer abc123  ", "abc123"},
		{"empty", "", ""},
		{"bearer only word", "Bearer", "Bearer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeToken(tt.raw); got != tt.want {
				t.Errorf("NormalizeToken(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
