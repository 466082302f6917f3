package docstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Swappable in tests.
var newFirebaseApp = firebase.NewApp

// FirestoreStore is a Client backed by Cloud Firestore through the Firebase
// Admin SDK. Firestore has no unique indexes; EnsureUnique reports
// ErrUnsupported.
type FirestoreStore struct {
	client *firestore.Client
	log    *zap.Logger
}

var _ Client = (*FirestoreStore)(nil)

// ConnectFirestore initialises a Firebase app for projectID and opens its
// Firestore client. An empty credentialsFile uses application default credentials.
func ConnectFirestore(ctx context.Context, projectID, credentialsFile string, logger *zap.Logger) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := newFirebaseApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase init: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &FirestoreStore{client: client, log: logger}, nil
}

func (s *FirestoreStore) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, fields)
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return Document{ID: snap.Ref.ID, Fields: snap.Data()}, nil
}

func (s *FirestoreStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ups := make([]firestore.Update, 0, len(keys))
	for _, k := range keys {
		ups = append(ups, firestore.Update{Path: k, Value: fields[k]})
	}
	_, err := s.client.Collection(collection).Doc(id).Update(ctx, ups)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.client.Collection(collection).Doc(id).Delete(ctx)
	return err
}

func (s *FirestoreStore) query(q Query) firestore.Query {
	fq := s.client.Collection(q.Collection).Query
	for _, f := range q.Where {
		fq = fq.Where(f.Field, "==", f.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Desc {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderBy, dir)
	}
	return fq
}

func (s *FirestoreStore) Find(ctx context.Context, q Query) ([]Document, error) {
	snaps, err := s.query(q).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return fromSnapshots(snaps), nil
}

// Listen streams native query snapshots. A snapshot error ends the subscription.
func (s *FirestoreStore) Listen(ctx context.Context, q Query, onData func([]Document), onError func(error)) *Subscription {
	sub, ctx := newSubscription(ctx)
	f := &feed{onData: onData, onError: onError}

	go func() {
		defer close(sub.done)
		it := s.query(q).Snapshots(ctx)
		defer it.Stop()

		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
					return
				}
				s.log.Warn("firestore snapshot failed", zap.String("query", q.String()), zap.Error(err))
				f.fail(ctx, err)
				return
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				f.fail(ctx, err)
				return
			}
			f.push(ctx, fromSnapshots(docs))
		}
	}()
	return sub
}

func (s *FirestoreStore) EnsureUnique(context.Context, string, ...string) error {
	return ErrUnsupported
}

func (s *FirestoreStore) Ping(ctx context.Context) error {
	_, err := s.client.Collection("users").Limit(1).Documents(ctx).GetAll()
	return err
}

func (s *FirestoreStore) Close(context.Context) error {
	return s.client.Close()
}

func fromSnapshots(snaps []*firestore.DocumentSnapshot) []Document {
	out := make([]Document, 0, len(snaps))
	for _, d := range snaps {
		out = append(out, Document{ID: d.Ref.ID, Fields: d.Data()})
	}
	return out
}
