package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"medicare-now/internal/adapters/storage/storagetest"
	"medicare-now/internal/gateway"
)

func openTemp(t *testing.T) *Tree {
	t.Helper()
	tr, err := Open(filepath.Join(t.TempDir(), "realtime.db"), 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestTree_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) gateway.Backend { return openTemp(t) }, storagetest.Options{Hierarchical: true})
}

func TestTree_PutGetListDelete(t *testing.T) {
	tr := openTemp(t)
	ctx := context.Background()

	if err := tr.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	if _, err := tr.Get(ctx, "health_data/u1", "r1"); !errors.Is(err, gateway.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	ids := []string{"2025-01-01_10:00:00", "2025-01-01_10:00:05", "2025-01-01_10:00:10"}
	for i, id := range ids {
		if err := tr.Put(ctx, "health_data/u1", id, gateway.Document{"pulse": float64(70 + i)}); err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}

	got, err := tr.Get(ctx, "health_data/u1", ids[1])
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got["pulse"] != float64(71) {
		t.Fatalf("unexpected doc %#v", got)
	}

	latest, err := tr.List(ctx, "health_data/u1", gateway.Query{Descending: true, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(latest) != 2 || latest[0].ID != ids[2] || latest[1].ID != ids[1] {
		t.Fatalf("unexpected list %#v", latest)
	}

	filtered, _ := tr.List(ctx, "health_data/u1", gateway.Query{Field: "pulse", Equals: float64(70)})
	if len(filtered) != 1 || filtered[0].ID != ids[0] {
		t.Fatalf("unexpected filtered list %#v", filtered)
	}

	if err := tr.Delete(ctx, "health_data/u1", ids[0]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := tr.Delete(ctx, "health_data/u1", ids[0]); err != nil {
		t.Fatalf("idempotent delete: %v", err)
	}
	if err := tr.Delete(ctx, "health_data/nobody", "x"); err != nil {
		t.Fatalf("delete in missing collection: %v", err)
	}

	empty, err := tr.List(ctx, "health_data/nobody", gateway.Query{})
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty list, got %#v err=%v", empty, err)
	}
}

func TestTree_InnerNodesAreNotRecords(t *testing.T) {
	tr := openTemp(t)
	ctx := context.Background()

	_ = tr.Put(ctx, "health_data/u1", "r1", gateway.Document{"pulse": float64(70)})

	list, err := tr.List(ctx, "health_data", gateway.Query{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("sub-buckets must not be listed as records, got %#v", list)
	}

	if err := tr.Put(ctx, "health_data", "u1", gateway.Document{"x": true}); !errors.Is(err, gateway.ErrValidation) {
		t.Fatalf("expected ErrValidation when a record collides with a collection, got %v", err)
	}
}

func TestTree_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "realtime.db")
	ctx := context.Background()

	tr, err := Open(path, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = tr.Put(ctx, "health_data/u1", "r1", gateway.Document{"pulse": float64(65)})
	_ = tr.Close()

	tr, err = Open(path, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer tr.Close()

	got, err := tr.Get(ctx, "health_data/u1", "r1")
	if err != nil || got["pulse"] != float64(65) {
		t.Fatalf("expected persisted doc, got %#v err=%v", got, err)
	}
}
