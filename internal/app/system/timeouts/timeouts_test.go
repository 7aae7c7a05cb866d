package timeouts_test

import (
	"testing"
	"time"

	"github.com/dalemusser/weblivery/internal/app/system/timeouts"
)

func TestConfigure_IgnoresZeroValues(t *testing.T) {
	t.Cleanup(timeouts.Reset)

	timeouts.Configure(timeouts.Config{Long: time.Minute})

	if got := timeouts.Long(); got != time.Minute {
		t.Errorf("Long: got %v, want %v", got, time.Minute)
	}
	if got := timeouts.Short(); got != timeouts.DefaultShort {
		t.Errorf("Short: got %v, want default %v", got, timeouts.DefaultShort)
	}
}

func TestReset(t *testing.T) {
	timeouts.Configure(timeouts.Config{Ping: time.Hour})
	timeouts.Reset()
	if got := timeouts.Ping(); got != timeouts.DefaultPing {
		t.Errorf("Ping after Reset: got %v, want %v", got, timeouts.DefaultPing)
	}
}
