// Package storagetest tiene la batería de tests que todo backend del
// gateway tiene que pasar, para que memory, bolt, mongo y postgres se
// comporten igual detrás del mismo contrato.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"medicare-now/internal/gateway"
)

// Factory devuelve un backend listo para usar; el cierre queda a cargo de
// la factory (t.Cleanup).
type Factory func(t *testing.T) gateway.Backend

type Options struct {
	// Hierarchical: árbol tipo realtime, un nombre es registro o colección.
	Hierarchical bool
}

// Run corre el contrato completo contra backends creados por newBackend.
// Todo pasa por un gateway para ejercitar los mismos ids y documentos
// normalizados que en producción.
func Run(t *testing.T, newBackend Factory, opts Options) {
	t.Helper()

	setup := func(t *testing.T) (*gateway.Gateway, string) {
		t.Helper()
		b := newBackend(t)
		if m, ok := b.(gateway.Migrator); ok {
			if err := m.Migrate(context.Background()); err != nil {
				t.Fatalf("migrate: %v", err)
			}
		}
		g, err := gateway.New(gateway.Options{Realtime: b, Document: b})
		if err != nil {
			t.Fatalf("gateway: %v", err)
		}
		// prefijo propio: mongo y postgres pueden ser bases compartidas
		return g, "ct-" + uuid.NewString()
	}

	t.Run("get missing", func(t *testing.T) {
		g, root := setup(t)
		if _, err := g.Get(context.Background(), root+"/users", "u1"); !errors.Is(err, gateway.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("put get overwrite", func(t *testing.T) {
		g, root := setup(t)
		ctx := context.Background()
		col := root + "/users"

		if err := g.Put(ctx, col, "u1", map[string]any{"email": "a@x.ro", "tags": []any{"a", "b"}}); err != nil {
			t.Fatalf("put: %v", err)
		}
		got, err := g.Get(ctx, col, "u1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got["email"] != "a@x.ro" {
			t.Fatalf("unexpected doc %#v", got)
		}

		got["email"] = "mutated"
		again, _ := g.Get(ctx, col, "u1")
		if again["email"] != "a@x.ro" {
			t.Fatalf("backend leaked its stored document")
		}

		if err := g.Put(ctx, col, "u1", map[string]any{"email": "b@x.ro"}); err != nil {
			t.Fatalf("overwrite: %v", err)
		}
		got, _ = g.Get(ctx, col, "u1")
		if got["email"] != "b@x.ro" || got["tags"] != nil {
			t.Fatalf("overwrite must replace the whole record, got %#v", got)
		}
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		g, root := setup(t)
		ctx := context.Background()
		col := root + "/users"

		_ = g.Put(ctx, col, "u1", map[string]any{"a": 1})
		for i := 0; i < 2; i++ {
			if err := g.Delete(ctx, col, "u1"); err != nil {
				t.Fatalf("delete #%d: %v", i+1, err)
			}
		}
		if err := g.Delete(ctx, root+"/nope/deeper", "x"); err != nil {
			t.Fatalf("delete in missing collection: %v", err)
		}
		if _, err := g.Get(ctx, col, "u1"); !errors.Is(err, gateway.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("list order filter limit", func(t *testing.T) {
		g, root := setup(t)
		ctx := context.Background()
		col := root + "/items"

		docs := map[string]map[string]any{
			"a1": {"kind": []any{"x", "y"}, "meta": map[string]any{"city": "Cluj"}},
			"a2": {"kind": "x", "meta": map[string]any{"city": "Iasi"}},
			"a3": {"kind": "x", "meta": map[string]any{"city": "Cluj"}},
			"a4": {"kind": "z", "rank": 4},
		}
		for id, d := range docs {
			if err := g.Put(ctx, col, id, d); err != nil {
				t.Fatalf("put %s: %v", id, err)
			}
		}

		assertIDs(t, "ascending", mustList(t, g, col, gateway.Query{}), "a1", "a2", "a3", "a4")
		assertIDs(t, "descending", mustList(t, g, col, gateway.Query{Descending: true}), "a4", "a3", "a2", "a1")
		assertIDs(t, "limit", mustList(t, g, col, gateway.Query{Limit: 2}), "a1", "a2")
		assertIDs(t, "desc limit", mustList(t, g, col, gateway.Query{Descending: true, Limit: 1}), "a4")

		// igualdad exacta: el array de a1 no cuenta como "x"
		assertIDs(t, "filter", mustList(t, g, col, gateway.Query{Field: "kind", Equals: "x"}), "a2", "a3")
		assertIDs(t, "filter limit", mustList(t, g, col, gateway.Query{Field: "kind", Equals: "x", Limit: 2}), "a2", "a3")
		assertIDs(t, "filter desc limit", mustList(t, g, col, gateway.Query{Field: "kind", Equals: "x", Descending: true, Limit: 1}), "a3")
		assertIDs(t, "nested filter", mustList(t, g, col, gateway.Query{Field: "meta.city", Equals: "Cluj"}), "a1", "a3")
		assertIDs(t, "number filter", mustList(t, g, col, gateway.Query{Field: "rank", Equals: 4}), "a4")
		assertIDs(t, "missing collection", mustList(t, g, root+"/empty", gateway.Query{}))
	})

	t.Run("create does not overwrite", func(t *testing.T) {
		g, root := setup(t)
		ctx := context.Background()
		col := root + "/claims"

		if err := g.Create(ctx, col, "k1", map[string]any{"owner": "u1"}); err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := g.Create(ctx, col, "k1", map[string]any{"owner": "u2"}); !errors.Is(err, gateway.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
		got, err := g.Get(ctx, col, "k1")
		if err != nil || got["owner"] != "u1" {
			t.Fatalf("expected the first owner to stay, got %#v err=%v", got, err)
		}

		_ = g.Delete(ctx, col, "k1")
		if err := g.Create(ctx, col, "k1", map[string]any{"owner": "u3"}); err != nil {
			t.Fatalf("create after delete: %v", err)
		}
	})

	t.Run("concurrent create has one winner", func(t *testing.T) {
		g, root := setup(t)
		ctx := context.Background()
		col := root + "/claims"

		const workers = 8
		var (
			wg        sync.WaitGroup
			start     = make(chan struct{})
			mu        sync.Mutex
			wins      int
			conflicts int
			others    []error
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				err := g.Create(ctx, col, "k1", map[string]any{"worker": i})

				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					wins++
				case errors.Is(err, gateway.ErrConflict):
					conflicts++
				default:
					others = append(others, err)
				}
			}(i)
		}
		close(start)
		wg.Wait()

		if wins != 1 || conflicts != workers-1 || len(others) != 0 {
			t.Fatalf("expected one winner, got wins=%d conflicts=%d others=%v", wins, conflicts, others)
		}
	})

	t.Run("rejects values the stores cannot hold", func(t *testing.T) {
		g, root := setup(t)
		ctx := context.Background()
		col := root + "/users"

		values := map[string]map[string]any{
			"dollar key":  {"$where": "x"},
			"dotted key":  {"a": map[string]any{"b.c": 1}},
			"nul string":  {"name": "a\x00b"},
			"nested list": {"a": []any{map[string]any{"$set": 1}}},
		}
		for name, v := range values {
			if err := g.Put(ctx, col, "u1", v); !errors.Is(err, gateway.ErrValidation) {
				t.Fatalf("%s: expected ErrValidation from Put, got %v", name, err)
			}
			if err := g.Create(ctx, col, "u1", v); !errors.Is(err, gateway.ErrValidation) {
				t.Fatalf("%s: expected ErrValidation from Create, got %v", name, err)
			}
		}
		if _, err := g.Get(ctx, col, "u1"); !errors.Is(err, gateway.ErrNotFound) {
			t.Fatalf("rejected values must not be stored, got %v", err)
		}
	})

	if !opts.Hierarchical {
		return
	}

	t.Run("record and collection cannot share a name", func(t *testing.T) {
		g, root := setup(t)
		ctx := context.Background()

		// registro primero, después colección con el mismo nombre
		if err := g.Put(ctx, root, "u1", map[string]any{"a": 1}); err != nil {
			t.Fatalf("put record: %v", err)
		}
		if err := g.Put(ctx, root+"/u1", "r1", map[string]any{"b": 2}); !errors.Is(err, gateway.ErrValidation) {
			t.Fatalf("expected ErrValidation writing under a record, got %v", err)
		}

		// colección primero, después registro con el mismo nombre
		if err := g.Put(ctx, root+"/u2", "r1", map[string]any{"b": 2}); err != nil {
			t.Fatalf("put nested: %v", err)
		}
		if err := g.Put(ctx, root, "u2", map[string]any{"a": 1}); !errors.Is(err, gateway.ErrValidation) {
			t.Fatalf("expected ErrValidation overwriting a collection, got %v", err)
		}
		if err := g.Create(ctx, root, "u2", map[string]any{"a": 1}); !errors.Is(err, gateway.ErrValidation) {
			t.Fatalf("expected ErrValidation creating over a collection, got %v", err)
		}

		// una colección vaciada sigue siendo colección
		_ = g.Delete(ctx, root+"/u2", "r1")
		if err := g.Put(ctx, root, "u2", map[string]any{"a": 1}); !errors.Is(err, gateway.ErrValidation) {
			t.Fatalf("expected ErrValidation over an emptied collection, got %v", err)
		}

		assertIDs(t, "inner node", mustList(t, g, root, gateway.Query{}), "u1")
		if got, err := g.Get(ctx, root, "u1"); err != nil || got["a"] != float64(1) {
			t.Fatalf("record must survive the rejected writes, got %#v err=%v", got, err)
		}
	})
}

func mustList(t *testing.T, g *gateway.Gateway, collection string, q gateway.Query) []gateway.Entry {
	t.Helper()
	out, err := g.List(context.Background(), collection, q)
	if err != nil {
		t.Fatalf("list %s %#v: %v", collection, q, err)
	}
	return out
}

func assertIDs(t *testing.T, name string, entries []gateway.Entry, want ...string) {
	t.Helper()
	if len(entries) != len(want) {
		t.Fatalf("%s: expected %v, got %d entries %#v", name, want, len(entries), entries)
	}
	for i, e := range entries {
		if e.ID != want[i] {
			t.Fatalf("%s: expected %v, got %v at %d", name, want, e.ID, i)
		}
	}
}
