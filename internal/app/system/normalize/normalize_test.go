package normalize_test

import (
	"testing"

	"github.com/dalemusser/weblivery/internal/app/system/normalize"
)

func TestEmail(t *testing.T) {
	if got := normalize.Email("  Dev.One@Example.COM "); got != "dev.one@example.com" {
		t.Errorf("Email: got %q", got)
	}
}

func TestName(t *testing.T) {
	if got := normalize.Name("  Ada   \t Lovelace "); got != "Ada Lovelace" {
		t.Errorf("Name: got %q", got)
	}
}

func TestPhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"+55 (11) 98765-4321", "+5511987654321"},
		{"011 2345", "0112345"},
		{"12+34", "1234"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalize.Phone(tt.in); got != tt.want {
			t.Errorf("Phone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
