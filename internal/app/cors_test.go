package app

import "testing"

func TestOriginAllowed(t *testing.T) {
	t.Parallel()

	patterns := []string{"example.com", "*.trusted.io"}

	tests := []struct {
		origin string
		want   bool
	}{
		{"https://example.com", true},
		{"http://example.com", true},
		{"https://sub.example.com", false},
		{"https://app.trusted.io", true},
		{"https://deep.app.trusted.io", true},
		{"https://trusted.io.evil.com", false},
		{"https://other.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			t.Parallel()
			if got := originAllowed(patterns, tt.origin); got != tt.want {
				t.Errorf("originAllowed(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}
