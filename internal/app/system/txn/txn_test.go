package txn_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dalemusser/weblivery/internal/app/system/txn"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestNone_RunsOnceAndPropagates(t *testing.T) {
	calls := 0
	want := errors.New("boom")

	err := txn.None{}.Run(context.Background(), func(ctx context.Context) error {
		calls++
		return want
	})

	if !errors.Is(err, want) {
		t.Errorf("err: got %v, want %v", err, want)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestIsNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unrelated", errors.New("connection reset"), false},
		{"illegal operation code", mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member"}, true},
		{"operation not supported in transaction code", mongo.CommandError{Code: 263, Message: "Cannot run in a multi-document transaction"}, true},
		{"other command code", mongo.CommandError{Code: 11000, Message: "E11000 duplicate key"}, false},
		{"wrapped command error", fmt.Errorf("accept: %w", mongo.CommandError{Code: 51}), true},
		{"replica set message", errors.New("Transaction numbers are only allowed on a replica set member or mongos"), true},
		{"sessions not supported", errors.New("Sessions are not supported by this server"), true},
		{"transaction alone", errors.New("transaction aborted"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := txn.IsNotSupported(tt.err); got != tt.want {
				t.Errorf("IsNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
