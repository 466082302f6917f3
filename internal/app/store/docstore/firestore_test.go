package docstore

import (
	"context"
	"errors"
	"testing"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

func TestConnectFirestore_InitFailure(t *testing.T) {
	orig := newFirebaseApp
	defer func() { newFirebaseApp = orig }()

	var gotProject string
	newFirebaseApp = func(ctx context.Context, cfg *firebase.Config, opts ...option.ClientOption) (*firebase.App, error) {
		gotProject = cfg.ProjectID
		return nil, errors.New("no credentials")
	}

	_, err := ConnectFirestore(context.Background(), "reporthub-test", "", zap.NewNop())
	if err == nil {
		t.Fatal("expected error when firebase init fails")
	}
	if gotProject != "reporthub-test" {
		t.Errorf("expected project id to be passed through, got %q", gotProject)
	}
}

func TestFirestore_EnsureUniqueUnsupported(t *testing.T) {
	s := &FirestoreStore{log: zap.NewNop()}
	if err := s.EnsureUnique(context.Background(), "users", "username"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
