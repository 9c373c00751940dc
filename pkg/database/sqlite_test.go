package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/party-queue-system/pkg/store"
)

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "partyqueue.db")

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}

	if _, err := s.Get(ctx, "partyqueue_ABC234"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Get on empty store: %v, want store.ErrNotFound", err)
	}

	if err := s.Set(ctx, "partyqueue_ABC234", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "partyqueue_ABC234", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}

	got, err := s.Get(ctx, "partyqueue_ABC234")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"v":2}` {
		t.Errorf("Get = %s, want overwritten value", got)
	}

	// Records survive reopening the file.
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err = reopened.Get(ctx, "partyqueue_ABC234")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if string(got) != `{"v":2}` {
		t.Errorf("Get after reopen = %s", got)
	}
}
