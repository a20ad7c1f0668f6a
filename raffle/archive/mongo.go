package archive

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/raffle-labs/raffle/raffle/config"
	"github.com/raffle-labs/raffle/raffle/events"
)

var _ events.Sink = &MongoSink{}

// EventDocument is the archived form of an event
type EventDocument struct {
	ID          string    `bson:"_id"`
	Type        string    `bson:"type"`
	RoundNumber uint64    `bson:"round_number"`
	Participant string    `bson:"participant,omitempty"`
	RequestID   string    `bson:"request_id,omitempty"`
	Timestamp   time.Time `bson:"timestamp"`
}

func NewEventDocument(ev *events.Event) *EventDocument {
	doc := &EventDocument{
		ID:          ev.ID.String(),
		Type:        string(ev.Type),
		RoundNumber: ev.RoundNumber,
		Timestamp:   ev.Timestamp.UTC(),
	}
	if ev.Type == events.EventDrawRequested {
		doc.RequestID = ev.RequestID.Hex()
	} else {
		doc.Participant = ev.Participant.Hex()
	}

	return doc
}

// MongoSink copies every event into a MongoDB collection. Events are keyed
// by their id, so a redelivered event is stored once.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
	logger     *zap.Logger
}

func NewMongoSink(ctx context.Context, cfg *config.EventArchiveConfig, logger *zap.Logger) (*MongoSink, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the event archive: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())

		return nil, fmt.Errorf("the event archive is not responding: %w", err)
	}

	s := &MongoSink{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		timeout:    cfg.Timeout,
		logger:     logger,
	}
	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())

		return nil, err
	}

	logger.Info("connected to the event archive",
		zap.String("database", cfg.Database),
		zap.String("collection", cfg.Collection),
	)

	return s, nil
}

func (s *MongoSink) ensureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "round_number", Value: 1}, {Key: "timestamp", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create the event archive index: %w", err)
	}

	return nil
}

func (s *MongoSink) HandleEvent(ctx context.Context, ev *events.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.collection.InsertOne(ctx, NewEventDocument(ev))
	if mongo.IsDuplicateKeyError(err) {
		s.logger.Debug("event already archived", zap.String("event_id", ev.ID.String()))

		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to archive event %s: %w", ev.ID, err)
	}

	return nil
}

// RoundEvents returns the archived events of a round, oldest first
func (s *MongoSink) RoundEvents(ctx context.Context, roundNumber uint64) ([]*EventDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cursor, err := s.collection.Find(ctx, bson.M{"round_number": roundNumber}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query the event archive: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []*EventDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode archived events: %w", err)
	}

	return docs, nil
}

func (s *MongoSink) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
