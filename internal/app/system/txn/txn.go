// Package txn provides the transaction boundary the workflow engine runs
// multi-document mutations in.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

// Transactor runs fn as one unit. Store calls inside fn must use the ctx
// handed to fn. fn may be invoked more than once when the backend retries a
// transient transaction error, so it must not keep state across attempts.
type Transactor interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// None runs fn directly. Used with the memory backend and with mongo
// deployments that do not support transactions (standalone servers); the
// workflow engine's compensation and the claim reconciler cover crashes.
type None struct{}

func (None) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Mongo runs fn inside a multi-document transaction. Requires a replica set
// or sharded cluster; on a server that rejects transactions fn runs
// directly and the rejection is logged.
type Mongo struct {
	Client *mongo.Client
	Log    *zap.Logger
}

func (m Mongo) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	err := m.runTx(ctx, fn)
	if err != nil && IsNotSupported(err) {
		if m.Log != nil {
			m.Log.Warn("transactions not supported by server, running without", zap.Error(err))
		}
		return fn(ctx)
	}
	return err
}

func (m Mongo) runTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := m.Client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	opts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, opts)
	return err
}

// Server error codes meaning the deployment cannot run the transaction:
// IllegalOperation, InvalidOptions, OperationNotSupportedInTransaction.
var notSupportedCodes = map[int32]bool{20: true, 51: true, 263: true}

// IsNotSupported reports whether err says the server cannot run
// multi-document transactions (standalone server, unsupported operation).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		return notSupportedCodes[ce.Code]
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "transaction") &&
		(strings.Contains(msg, "replica set") || strings.Contains(msg, "session") || strings.Contains(msg, "illegal operation")) {
		return true
	}
	return strings.Contains(msg, "session") && strings.Contains(msg, "not supported")
}
