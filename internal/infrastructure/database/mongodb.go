package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ak/cafeinv/internal/infrastructure/config"
	"github.com/ak/cafeinv/internal/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// MongoDB wraps the MongoDB client and database
type MongoDB struct {
	client   *mongo.Client
	database *mongo.Database
	config   config.MongoDBConfig
	logger   *logger.Logger
}

// NewMongoDB creates a new MongoDB connection
func NewMongoDB(cfg config.MongoDBConfig, log *logger.Logger) (*MongoDB, error) {
	return &MongoDB{
		config: cfg,
		logger: log.WithComponent("mongodb"),
	}, nil
}

// Connect establishes connection to MongoDB
func (m *MongoDB) Connect(ctx context.Context) error {
	clientOpts := options.Client().
		ApplyURI(m.config.URI).
		SetMaxPoolSize(m.config.MaxPoolSize).
		SetMinPoolSize(m.config.MinPoolSize).
		SetConnectTimeout(m.config.ConnectTimeout).
		SetRegistry(NewRegistry())

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Verify connection
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	m.client = client
	m.database = client.Database(m.config.Database)
	m.logger.Info("Connected to MongoDB", zap.String("database", m.config.Database))

	// Create indexes
	if err := m.createIndexes(ctx); err != nil {
		m.logger.Warn("Failed to create some indexes", zap.Error(err))
	}

	return nil
}

// Close closes the MongoDB connection
func (m *MongoDB) Close(ctx context.Context) error {
	if m.client != nil {
		return m.client.Disconnect(ctx)
	}
	return nil
}

// Database returns the database instance
func (m *MongoDB) Database() *mongo.Database {
	return m.database
}

// Client returns the client instance
func (m *MongoDB) Client() *mongo.Client {
	return m.client
}

// Collection returns a collection by name
func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

// Collections
const (
	CollectionIngredientTypes = "ingredient_types"
	CollectionIngredients     = "ingredients"
	CollectionProducts        = "products"
	CollectionModifiers       = "recipe_modifiers"
	CollectionOrders          = "orders"
	CollectionUsageLogs       = "ingredient_usage_logs"
	CollectionUnmappedItems   = "unmapped_items"
	CollectionImportLogs      = "import_logs"
)

// createIndexes creates necessary indexes for all collections
func (m *MongoDB) createIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		CollectionIngredientTypes: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		CollectionIngredients: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "type_id", Value: 1}}},
		},
		CollectionProducts: {
			{Keys: bson.D{{Key: "name", Value: 1}}},
			{Keys: bson.D{{Key: "sku", Value: 1}}, Options: options.Index().SetSparse(true)},
			{Keys: bson.D{{Key: "categories", Value: 1}}},
		},
		CollectionModifiers: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		CollectionOrders: {
			{Keys: bson.D{{Key: "order_id", Value: 1}, {Key: "platform", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "platform", Value: 1}, {Key: "order_date", Value: -1}}},
		},
		CollectionUsageLogs: {
			{Keys: bson.D{{Key: "ingredient_id", Value: 1}, {Key: "date", Value: 1}, {Key: "source", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "date", Value: 1}, {Key: "source", Value: 1}}},
		},
		CollectionUnmappedItems: {
			{Keys: bson.D{
				{Key: "source", Value: 1},
				{Key: "item_type", Value: 1},
				{Key: "normalized_item", Value: 1},
				{Key: "normalized_price_point", Value: 1},
			}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "resolved", Value: 1}, {Key: "ignored", Value: 1}, {Key: "seen_count", Value: -1}}},
		},
		CollectionImportLogs: {
			{Keys: bson.D{{Key: "source", Value: 1}, {Key: "started_at", Value: -1}}},
			{Keys: bson.D{{Key: "run_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for collection, idxModels := range indexes {
		coll := m.database.Collection(collection)
		for _, idx := range idxModels {
			_, err := coll.Indexes().CreateOne(ctx, idx)
			if err != nil {
				m.logger.Warn("Failed to create index",
					zap.String("collection", collection),
					zap.Error(err))
			}
		}
	}

	return nil
}

// WithTransaction runs fn inside a multi-document transaction. The
// deployment must be a replica set; fn may be retried on transient errors.
func (m *MongoDB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// Health checks if MongoDB is healthy
func (m *MongoDB) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return m.client.Ping(ctx, readpref.Primary())
}
