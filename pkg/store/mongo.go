package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	lterrors "github.com/matzehuels/labeltower/pkg/errors"
	"github.com/matzehuels/labeltower/pkg/result"
)

// Defaults for [MongoConfig].
const (
	DefaultDatabase   = "labeltower"
	DefaultCollection = "runs"
)

// MongoConfig configures a [MongoStore].
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
	// Timeout bounds connecting and the initial ping. Defaults to 10s.
	Timeout time.Duration
}

// MongoStore keeps runs in a MongoDB collection. Reports are stored as their
// JSON encoding next to indexed summary fields.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type document struct {
	RunID     string       `bson:"_id"`
	Scheme    string       `bson:"scheme"`
	InputHash string       `bson:"input_hash,omitempty"`
	CreatedAt time.Time    `bson:"created_at"`
	Stats     result.Stats `bson:"stats"`
	Report    []byte       `bson:"report,omitempty"`
}

// NewMongoStore connects to MongoDB and ensures the indexes of the
// collection exist.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, lterrors.New(lterrors.ErrCodeConfiguration, "mongo store: no uri configured")
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetServerSelectionTimeout(cfg.Timeout))
	if err != nil {
		return nil, lterrors.Wrap(lterrors.ErrCodeStorage, err, "connect to mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, lterrors.Wrap(lterrors.ErrCodeStorage, err, "ping mongo")
	}

	s := &MongoStore{client: client, coll: client.Database(cfg.Database).Collection(cfg.Collection)}
	_, err = s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "scheme", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, lterrors.Wrap(lterrors.ErrCodeStorage, err, "create index")
	}
	return s, nil
}

func (s *MongoStore) Save(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	doc := document{
		RunID:     rec.RunID,
		Scheme:    rec.Scheme,
		InputHash: rec.InputHash,
		CreatedAt: rec.CreatedAt,
		Report:    data,
	}
	if rec.Report != nil {
		doc.Stats = rec.Report.Stats
	}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": rec.RunID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return lterrors.Wrap(lterrors.ErrCodeStorage, err, "save run %s", rec.RunID)
	}
	return nil
}

func (s *MongoStore) Load(ctx context.Context, runID string) (*Record, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.M{"_id": runID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, lterrors.Wrap(lterrors.ErrCodeStorage, err, "load run %s", runID)
	}
	rec := &Record{RunID: doc.RunID, Scheme: doc.Scheme, InputHash: doc.InputHash, CreatedAt: doc.CreatedAt}
	if len(doc.Report) > 0 {
		rec.Report = new(result.Report)
		if err := json.Unmarshal(doc.Report, rec.Report); err != nil {
			return nil, fmt.Errorf("parse report of run %s: %w", runID, err)
		}
	}
	return rec, nil
}

func (s *MongoStore) List(ctx context.Context, limit int) ([]Summary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetProjection(bson.M{"report": 0})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, lterrors.Wrap(lterrors.ErrCodeStorage, err, "list runs")
	}
	defer cur.Close(ctx)

	var out []Summary
	for cur.Next(ctx) {
		var doc document
		if err := cur.Decode(&doc); err != nil {
			return nil, lterrors.Wrap(lterrors.ErrCodeStorage, err, "decode run")
		}
		out = append(out, Summary{
			RunID:     doc.RunID,
			Scheme:    doc.Scheme,
			InputHash: doc.InputHash,
			CreatedAt: doc.CreatedAt,
			Stats:     doc.Stats,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, lterrors.Wrap(lterrors.ErrCodeStorage, err, "list runs")
	}
	return out, nil
}

func (s *MongoStore) Delete(ctx context.Context, runID string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": runID}); err != nil {
		return lterrors.Wrap(lterrors.ErrCodeStorage, err, "delete run %s", runID)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
