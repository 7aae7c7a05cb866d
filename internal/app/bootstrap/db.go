// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/waffle/config"
	auditstore "github.com/dalemusser/weblivery/internal/app/store/audit"
	"github.com/dalemusser/weblivery/internal/app/store/memory"
	projectstore "github.com/dalemusser/weblivery/internal/app/store/projects"
	requeststore "github.com/dalemusser/weblivery/internal/app/store/requests"
	userstore "github.com/dalemusser/weblivery/internal/app/store/users"
	"github.com/dalemusser/weblivery/internal/app/system/indexes"
	"github.com/dalemusser/weblivery/internal/app/system/timeouts"
	"github.com/dalemusser/weblivery/internal/app/system/txn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens the configured store backend and builds the store views.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	if appCfg.StoreBackend == BackendMemory {
		logger.Info("using in-memory store backend")
		return MemoryDeps(memory.New()), nil
	}

	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetAppName("weblivery")
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Bool("transactions", appCfg.MongoTransactions))
	return MongoDeps(client, client.Database(appCfg.MongoDatabase), appCfg.MongoTransactions, logger), nil
}

// MongoDeps wires the mongo stores over db. With transactions enabled the
// accept transition commits atomically; otherwise it relies on compensation
// and the claim reconciler.
func MongoDeps(client *mongo.Client, db *mongo.Database, transactions bool, log *zap.Logger) DBDeps {
	var tx txn.Transactor = txn.None{}
	if transactions {
		tx = txn.Mongo{Client: client, Log: log}
	}
	return DBDeps{
		Backend:       BackendMongo,
		MongoClient:   client,
		MongoDatabase: db,
		Stores: Stores{
			Users:    userstore.New(db),
			Requests: requeststore.New(db),
			Projects: projectstore.New(db),
			Audit:    auditstore.New(db),
		},
		Tx:       tx,
		Registry: newRegistry(),
		services: &services{},
	}
}

// MemoryDeps wires the in-process stores over mdb.
func MemoryDeps(mdb *memory.DB) DBDeps {
	return DBDeps{
		Backend: BackendMemory,
		Memory:  mdb,
		Stores: Stores{
			Users:    mdb.Users(),
			Requests: mdb.Requests(),
			Projects: mdb.Projects(),
			Audit:    mdb.Audit(),
		},
		Tx:       txn.None{},
		Registry: newRegistry(),
		services: &services{},
	}
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// EnsureSchema creates the MongoDB indexes. The memory backend enforces the
// same uniqueness rules in code and needs nothing here.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.MongoDatabase == nil {
		return nil
	}
	return indexes.EnsureAll(ctx, deps.MongoDatabase, logger)
}
