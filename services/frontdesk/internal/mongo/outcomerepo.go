package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/appetiteclub/frontdesk/services/frontdesk/internal/frontdesk"
)

const outcomeRetention = 7 * 24 * time.Hour

// OutcomeRepo stores reservation submit outcomes so they survive restarts
// and reach users who left the wizard before the submit finished.
type OutcomeRepo struct {
	client     *mongo.Client
	db         *mongo.Database
	collection *mongo.Collection
	logger     apt.Logger
	config     *apt.Config
}

func NewOutcomeRepo(config *apt.Config, logger apt.Logger) *OutcomeRepo {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &OutcomeRepo{
		logger: logger,
		config: config,
	}
}

func (r *OutcomeRepo) Start(ctx context.Context) error {
	connString := r.config.GetStringOrDef("db.mongo.url", "mongodb://localhost:27017")
	dbName := r.config.GetStringOrDef("db.mongo.name", "frontdesk")

	clientOptions := options.Client().ApplyURI(connString).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("cannot connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	r.client = client
	r.db = client.Database(dbName)
	r.collection = r.db.Collection("outcomes")

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(outcomeRetention.Seconds())),
		},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("cannot create indexes: %w", err)
	}

	r.logger.Infof("Connected to MongoDB: %s, database: %s, collection: outcomes", connString, dbName)
	return nil
}

func (r *OutcomeRepo) Stop(ctx context.Context) error {
	if r.client != nil {
		if err := r.client.Disconnect(ctx); err != nil {
			return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
		}
		r.logger.Info("Disconnected from MongoDB")
	}
	return nil
}

func (r *OutcomeRepo) Save(ctx context.Context, outcome *frontdesk.Outcome) error {
	if outcome == nil {
		return fmt.Errorf("outcome is nil")
	}

	if _, err := r.collection.InsertOne(ctx, outcome); err != nil {
		return fmt.Errorf("cannot save outcome: %w", err)
	}

	return nil
}

func (r *OutcomeRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]*frontdesk.Outcome, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list outcomes: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*frontdesk.Outcome
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode outcomes: %w", err)
	}

	return result, nil
}

var _ frontdesk.OutcomeStore = (*OutcomeRepo)(nil)
