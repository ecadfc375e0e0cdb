// Package mongodb implements the repo contract on MongoDB collections.
package mongodb

import (
	"context"
	"fmt"

	"github.com/techdiscoveria/discoveria/internal/observability"
	"github.com/techdiscoveria/discoveria/internal/repo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	UsersCollection    = "users"
	ProductsCollection = "products"
	PaymentsCollection = "payments"
)

type base struct {
	prom *observability.Prom
}

func (b base) observe(op string, fn func() error) error {
	if b.prom != nil {
		return b.prom.ObserveDB(op, fn)
	}
	return fn()
}

type Options struct {
	Database string
	// Transactions requires a replica set or sharded cluster.
	Transactions bool
	Prom         *observability.Prom
}

// NewStore wires the collections of opts.Database and makes sure the indexes exist.
// Closing the store disconnects the client.
func NewStore(ctx context.Context, client *mongo.Client, opts Options) (*repo.Store, error) {
	db := client.Database(opts.Database)

	if err := EnsureIndexes(ctx, db); err != nil {
		return nil, err
	}

	users := NewUsersRepo(db.Collection(UsersCollection), opts.Prom)
	products := NewProductsRepo(db.Collection(ProductsCollection), opts.Prom)
	payments := NewPaymentsRepo(client, db.Collection(PaymentsCollection), users, opts.Transactions, opts.Prom)

	return repo.NewStore(
		users,
		products,
		payments,
		func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
		client.Disconnect,
	), nil
}

func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		ProductsCollection: {
			{Keys: bson.D{{Key: "ownerEmail", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "category", Value: 1}}},
		},
		PaymentsCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "upgradeStatus", Value: 1}, {Key: "nextUpgradeAt", Value: 1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}

func updateResult(res *mongo.UpdateResult) repo.UpdateResult {
	out := repo.UpdateResult{
		Acknowledged:  true,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
	}
	if id, ok := res.UpsertedID.(interface{ Hex() string }); ok {
		hex := id.Hex()
		out.UpsertedID = &hex
	}
	return out
}
