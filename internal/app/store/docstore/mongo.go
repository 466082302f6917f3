package docstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// DefaultPollInterval is used by Mongo subscriptions when change streams are
// unavailable and no interval was configured.
const DefaultPollInterval = 2 * time.Second

// MongoStore is a Client backed by a MongoDB database.
type MongoStore struct {
	client       *mongo.Client
	db           *mongo.Database
	log          *zap.Logger
	pollInterval time.Duration
}

var _ Client = (*MongoStore)(nil)

// NewMongo wraps an already connected database.
func NewMongo(client *mongo.Client, db *mongo.Database, pollInterval time.Duration, logger *zap.Logger) *MongoStore {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &MongoStore{client: client, db: db, log: logger, pollInterval: pollInterval}
}

// ConnectMongo dials uri, verifies the connection and returns a store on database.
func ConnectMongo(ctx context.Context, uri, database string, pollInterval time.Duration, logger *zap.Logger) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return NewMongo(client, client.Database(database), pollInterval, logger), nil
}

// Database exposes the underlying database, for integration tests.
func (s *MongoStore) Database() *mongo.Database {
	return s.db
}

func (s *MongoStore) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	doc := bson.M{}
	for k, v := range fields {
		doc[k] = v
	}
	oid := primitive.NewObjectID()
	doc["_id"] = oid
	if _, err := s.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		if wafflemongo.IsDup(err) {
			return "", ErrDuplicate
		}
		return "", err
	}
	return oid.Hex(), nil
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Document{}, ErrNotFound
	}
	var raw bson.M
	if err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": oid}).Decode(&raw); err != nil {
		if err == mongo.ErrNoDocuments {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return fromBSON(raw), nil
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}
	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicate
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	_, err = s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

func (s *MongoStore) Find(ctx context.Context, q Query) ([]Document, error) {
	filter := bson.D{}
	for _, f := range q.Where {
		filter = append(filter, bson.E{Key: f.Field, Value: f.Value})
	}
	opts := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: dir}, {Key: "_id", Value: dir}})
	}

	cur, err := s.db.Collection(q.Collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []Document{}
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, err
		}
		out = append(out, fromBSON(raw))
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Listen re-queries on every change stream event. Standalone servers reject
// change streams; the subscription then polls and delivers only on change.
func (s *MongoStore) Listen(ctx context.Context, q Query, onData func([]Document), onError func(error)) *Subscription {
	sub, ctx := newSubscription(ctx)
	f := &feed{
		fetch:   func(ctx context.Context) ([]Document, error) { return s.Find(ctx, q) },
		onData:  onData,
		onError: onError,
	}

	go func() {
		defer close(sub.done)

		_ = f.refresh(ctx)

		cs, err := s.db.Collection(q.Collection).Watch(ctx, mongo.Pipeline{})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Info("change stream unavailable, polling",
				zap.String("query", q.String()),
				zap.Duration("interval", s.pollInterval),
				zap.Error(err))
			s.poll(ctx, f)
			return
		}
		defer cs.Close(context.Background())

		for cs.Next(ctx) {
			_ = f.refresh(ctx)
		}
		if err := cs.Err(); err != nil && ctx.Err() == nil {
			s.log.Warn("change stream ended, polling", zap.String("query", q.String()), zap.Error(err))
			f.fail(ctx, err)
			s.poll(ctx, f)
		}
	}()
	return sub
}

func (s *MongoStore) poll(ctx context.Context, f *feed) {
	f.onlyChanged = true
	t := time.NewTicker(s.pollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_ = f.refresh(ctx)
		}
	}
}

func (s *MongoStore) EnsureUnique(ctx context.Context, collection string, fields ...string) error {
	keys := bson.D{}
	for _, f := range fields {
		keys = append(keys, bson.E{Key: f, Value: 1})
	}
	name := "uniq_" + strings.Join(fields, "_")
	_, err := s.db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    keys,
		Options: options.Index().SetUnique(true).SetName(name),
	})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return fmt.Errorf("existing documents violate %s on %s: %w", name, collection, ErrDuplicate)
		}
		return fmt.Errorf("create index %s on %s: %w", name, collection, err)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func fromBSON(raw bson.M) Document {
	d := Document{Fields: make(map[string]any, len(raw))}
	for k, v := range raw {
		if k == "_id" {
			switch id := v.(type) {
			case primitive.ObjectID:
				d.ID = id.Hex()
			default:
				d.ID = fmt.Sprint(id)
			}
			continue
		}
		d.Fields[k] = plain(v)
	}
	return d
}

// plain converts nested BSON containers to ordinary maps and slices.
func plain(v any) any {
	switch t := v.(type) {
	case bson.M:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = plain(e)
		}
		return m
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = plain(e.Value)
		}
		return m
	case bson.A:
		a := make([]any, len(t))
		for i, e := range t {
			a[i] = plain(e)
		}
		return a
	}
	return v
}
