package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPasswordStrength(t *testing.T) {
	tests := []struct {
		pw    string
		score int
		label string
	}{
		{"", 0, ""},
		{"a", 1, "Very Weak"},
		{"abcdefgh", 2, "Weak"},
		{"abcdefgH", 3, "Fair"},
		{"abcdefH1", 4, "Good"},
		{"abcdeH1!", 5, "Strong"},
		{"AB12", 2, "Weak"},
		{"пароль12", 3, "Fair"},
	}

	for _, tt := range tests {
		t.Run(tt.pw, func(t *testing.T) {
			got := PasswordStrength(tt.pw)
			assert.Equal(t, tt.score, got.Score)
			assert.Equal(t, tt.label, got.Label)
		})
	}
}
