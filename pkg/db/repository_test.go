package db

import (
	"testing"

	"github.com/morezero/frame-bridge/pkg/journal"
)

// Repository must satisfy the journal interface the engine records into.
var _ journal.Journal = (*Repository)(nil)

func TestNewRepository(t *testing.T) {
	repo := NewRepository(nil)
	if repo == nil {
		t.Fatal("db:repository_test - expected non-nil repository")
	}
}
