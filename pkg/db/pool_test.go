package db

import (
	"context"
	"testing"
)

const poolTestPrefix = "db:pool_test"

func TestNewPool_BadURLs(t *testing.T) {
	for _, u := range []string{"invalid://not-a-valid-database-url", "", "postgres://%zz"} {
		pool, err := NewPool(context.Background(), u)
		if err == nil {
			if pool != nil {
				pool.Close()
			}
			t.Fatalf("%s - expected error for %q", poolTestPrefix, u)
		}
		if pool != nil {
			t.Errorf("%s - expected nil pool on error for %q", poolTestPrefix, u)
		}
	}
}

func TestMigrationDown_IsNoOp(t *testing.T) {
	if err := MigrationDown(context.Background(), nil, ""); err != nil {
		t.Errorf("%s - MigrationDown returned %v, want nil", poolTestPrefix, err)
	}
}
