package reportstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/reporthub/internal/app/store/docstore"
	"github.com/dalemusser/reporthub/internal/domain/models"
	"go.uber.org/zap"
)

// Collection is the document collection holding reports.
const Collection = "reports"

var (
	// ErrNotFound is returned when a report key does not exist.
	ErrNotFound = errors.New("report not found")
	// ErrDateConflict is returned when the backend's unique (userId, day)
	// index rejects a write.
	ErrDateConflict = errors.New("a report already exists for this user and day")
)

// Draft is the editable part of a report.
type Draft struct {
	Date string
	Text string
}

type Store struct {
	db  docstore.Client
	log *zap.Logger
}

func New(db docstore.Client, logger *zap.Logger) *Store {
	return &Store{db: db, log: logger}
}

// EnsureIndexes declares the unique (userId, day) index where supported.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	err := s.db.EnsureUnique(ctx, Collection, "userId", "day")
	if errors.Is(err, docstore.ErrUnsupported) {
		s.log.Info("unique report day index unsupported by backend, relying on conflict check")
		return nil
	}
	return err
}

func listQuery(userID string, isAdmin bool) docstore.Query {
	q := docstore.Query{Collection: Collection, OrderBy: "date", Desc: true}
	if !isAdmin {
		q.Where = []docstore.Filter{docstore.Eq("userId", userID)}
	}
	return q
}

// Listen delivers reports ordered by date descending: every report for an
// administrator, otherwise only the user's own.
func (s *Store) Listen(ctx context.Context, userID string, isAdmin bool, onData func([]models.Report), onError func(error)) *docstore.Subscription {
	return s.db.Listen(ctx, listQuery(userID, isAdmin), func(docs []docstore.Document) {
		onData(fromDocs(docs))
	}, onError)
}

// List is the one-shot form of Listen.
func (s *Store) List(ctx context.Context, userID string, isAdmin bool) ([]models.Report, error) {
	docs, err := s.db.Find(ctx, listQuery(userID, isAdmin))
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return fromDocs(docs), nil
}

// Get loads one report.
func (s *Store) Get(ctx context.Context, key string) (models.Report, error) {
	doc, err := s.db.Get(ctx, Collection, key)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return models.Report{}, ErrNotFound
		}
		return models.Report{}, fmt.Errorf("get report %s: %w", key, err)
	}
	return fromDoc(doc), nil
}

// Save inserts a new report owned by userID.
func (s *Store) Save(ctx context.Context, userID string, d Draft) (models.Report, error) {
	r := models.Report{Date: d.Date, Text: d.Text, UserID: userID}
	key, err := s.db.Create(ctx, Collection, toFields(r))
	if err != nil {
		if errors.Is(err, docstore.ErrDuplicate) {
			return models.Report{}, ErrDateConflict
		}
		return models.Report{}, fmt.Errorf("save report: %w", err)
	}
	r.Key = key
	return r, nil
}

// Update replaces date, text and userId of the report at key.
func (s *Store) Update(ctx context.Context, key string, r models.Report) (models.Report, error) {
	if err := s.db.Update(ctx, Collection, key, toFields(r)); err != nil {
		switch {
		case errors.Is(err, docstore.ErrNotFound):
			return models.Report{}, ErrNotFound
		case errors.Is(err, docstore.ErrDuplicate):
			return models.Report{}, ErrDateConflict
		}
		return models.Report{}, fmt.Errorf("update report %s: %w", key, err)
	}
	r.Key = key
	return r, nil
}

// Delete removes the report at key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.db.Delete(ctx, Collection, key); err != nil {
		return fmt.Errorf("delete report %s: %w", key, err)
	}
	return nil
}

// CheckDateConflict returns the first report of userID on the same calendar
// day as dateISO, skipping excludeKey. A store failure is logged and
// reported as no conflict.
func (s *Store) CheckDateConflict(ctx context.Context, userID, dateISO, excludeKey string) *models.Report {
	docs, err := s.db.Find(ctx, docstore.Query{
		Collection: Collection,
		Where:      []docstore.Filter{docstore.Eq("userId", userID)},
	})
	if err != nil {
		s.log.Error("date conflict check failed, allowing save",
			zap.String("user_id", userID),
			zap.String("date", dateISO),
			zap.Error(err))
		return nil
	}
	day := models.DayOf(dateISO)
	for _, d := range docs {
		if d.ID == excludeKey {
			continue
		}
		r := fromDoc(d)
		if r.Day() == day {
			return &r
		}
	}
	return nil
}

func fromDoc(d docstore.Document) models.Report {
	return models.Report{
		Key:    d.ID,
		Date:   d.String("date"),
		Text:   d.String("text"),
		UserID: d.String("userId"),
	}
}

func fromDocs(docs []docstore.Document) []models.Report {
	out := make([]models.Report, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromDoc(d))
	}
	return out
}

func toFields(r models.Report) map[string]any {
	return map[string]any{
		"date":   r.Date,
		"text":   r.Text,
		"userId": r.UserID,
		"day":    r.Day(),
	}
}
