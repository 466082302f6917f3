package userstore

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/dalemusser/reporthub/internal/app/store/docstore"
	"github.com/dalemusser/reporthub/internal/app/system/normalize"
	"github.com/dalemusser/reporthub/internal/domain/models"
	"go.uber.org/zap"
)

// Collection is the document collection holding user accounts.
const Collection = "users"

// MinPasswordLength is the shortest password accepted at creation.
const MinPasswordLength = 6

var (
	// ErrUsernameRequired is returned when the trimmed username is empty.
	ErrUsernameRequired = errors.New("username is required")
	// ErrDuplicateUsername is returned when the lower-cased username is taken.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrPasswordTooShort is returned when the password is missing or too short.
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	// ErrNotFound is returned when a user id does not exist.
	ErrNotFound = errors.New("user not found")
)

type Store struct {
	db  docstore.Client
	log *zap.Logger
}

func New(db docstore.Client, logger *zap.Logger) *Store {
	return &Store{db: db, log: logger}
}

// GetByUsername looks a user up by case-insensitive exact username. The first
// match wins if duplicates exist. A store failure is logged and reported as
// not found.
func (s *Store) GetByUsername(ctx context.Context, username string) (models.User, bool) {
	u, ok, err := s.findByUsername(ctx, normalize.Username(username))
	if err != nil {
		s.log.Error("user lookup failed, treating as not found",
			zap.String("username", normalize.Username(username)),
			zap.Error(err))
		return models.User{}, false
	}
	return u, ok
}

func (s *Store) findByUsername(ctx context.Context, username string) (models.User, bool, error) {
	docs, err := s.db.Find(ctx, docstore.Query{
		Collection: Collection,
		Where:      []docstore.Filter{docstore.Eq("username", username)},
	})
	if err != nil {
		return models.User{}, false, err
	}
	if len(docs) == 0 {
		return models.User{}, false, nil
	}
	return fromDoc(docs[0]), true, nil
}

// GetByID loads one user.
func (s *Store) GetByID(ctx context.Context, id string) (models.User, error) {
	doc, err := s.db.Get(ctx, Collection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	return fromDoc(doc), nil
}

// Add validates and creates an active user. Validation runs in order:
// username present, username free, password long enough.
func (s *Store) Add(ctx context.Context, username, name, password string) (models.User, error) {
	username = normalize.Username(username)
	if username == "" {
		return models.User{}, ErrUsernameRequired
	}

	_, exists, err := s.findByUsername(ctx, username)
	if err != nil {
		return models.User{}, fmt.Errorf("check username: %w", err)
	}
	if exists {
		return models.User{}, ErrDuplicateUsername
	}

	if utf8.RuneCountInString(password) < MinPasswordLength {
		return models.User{}, ErrPasswordTooShort
	}

	u := models.User{
		Username: username,
		Name:     normalize.Name(name),
		IsActive: true,
		Password: password,
	}
	if u.Name == "" {
		u.Name = username
	}

	id, err := s.db.Create(ctx, Collection, toFields(u))
	if err != nil {
		if errors.Is(err, docstore.ErrDuplicate) {
			return models.User{}, ErrDuplicateUsername
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	u.ID = id
	return u, nil
}

// UserUpdate carries the fields to change; nil fields are left alone.
type UserUpdate struct {
	Name     *string
	IsActive *bool
	Password *string
}

func (up UserUpdate) fields() map[string]any {
	f := map[string]any{}
	if up.Name != nil {
		f["name"] = *up.Name
	}
	if up.IsActive != nil {
		f["isActive"] = *up.IsActive
	}
	if up.Password != nil {
		f["password"] = *up.Password
	}
	return f
}

// Update merges the given fields into the user. No validation is re-applied.
func (s *Store) Update(ctx context.Context, id string, up UserUpdate) error {
	fields := up.fields()
	if len(fields) == 0 {
		return nil
	}
	if err := s.db.Update(ctx, Collection, id, fields); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("update user %s: %w", id, err)
	}
	return nil
}

// Delete removes the user. Their reports are kept.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.db.Delete(ctx, Collection, id); err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	return nil
}

// Listen delivers the full user list, in no guaranteed order, on initial
// load and after every change.
func (s *Store) Listen(ctx context.Context, onData func([]models.User), onError func(error)) *docstore.Subscription {
	return s.db.Listen(ctx, docstore.Query{Collection: Collection}, func(docs []docstore.Document) {
		users := make([]models.User, 0, len(docs))
		for _, d := range docs {
			users = append(users, fromDoc(d))
		}
		onData(users)
	}, onError)
}

// List is the one-shot form of Listen.
func (s *Store) List(ctx context.Context) ([]models.User, error) {
	docs, err := s.db.Find(ctx, docstore.Query{Collection: Collection})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]models.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, fromDoc(d))
	}
	return users, nil
}

// SeedMaster creates the administrator account or, when it exists, resets
// its password and re-enables it. A blank name keeps the current one.
func (s *Store) SeedMaster(ctx context.Context, password, name string) (created bool, err error) {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return false, ErrPasswordTooShort
	}
	existing, ok, err := s.findByUsername(ctx, models.MasterUsername)
	if err != nil {
		return false, fmt.Errorf("look up master: %w", err)
	}
	if ok {
		active := true
		up := UserUpdate{Password: &password, IsActive: &active}
		if n := normalize.Name(name); n != "" {
			up.Name = &n
		}
		return false, s.Update(ctx, existing.ID, up)
	}
	if _, err := s.Add(ctx, models.MasterUsername, name, password); err != nil {
		return false, err
	}
	return true, nil
}

// EnsureIndexes declares the unique username index where the backend has one.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	err := s.db.EnsureUnique(ctx, Collection, "username")
	if errors.Is(err, docstore.ErrUnsupported) {
		s.log.Info("unique username index unsupported by backend, relying on lookup")
		return nil
	}
	return err
}

func fromDoc(d docstore.Document) models.User {
	return models.User{
		ID:       d.ID,
		Username: d.String("username"),
		Name:     d.String("name"),
		IsActive: d.Bool("isActive"),
		Password: d.String("password"),
	}
}

func toFields(u models.User) map[string]any {
	return map[string]any{
		"username": u.Username,
		"name":     u.Name,
		"isActive": u.IsActive,
		"password": u.Password,
	}
}
