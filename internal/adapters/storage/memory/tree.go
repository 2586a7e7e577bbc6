package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"medicare-now/internal/gateway"
)

var _ gateway.Backend = (*Tree)(nil)

// Un nodo es registro (value != nil) o colección (children), nunca ambos.
type node struct {
	children map[string]*node
	value    gateway.Document
}

func (n *node) child(key string, create bool) *node {
	if c, ok := n.children[key]; ok {
		return c
	}
	if !create {
		return nil
	}
	if n.children == nil {
		n.children = make(map[string]*node)
	}
	c := &node{}
	n.children[key] = c
	return c
}

// Tree es el backend realtime en memoria: cada segmento del path es un nodo.
type Tree struct {
	mu   sync.RWMutex
	root *node
}

func NewTree() *Tree {
	return &Tree{root: &node{}}
}

func (t *Tree) Name() string { return "memory-tree" }

func (t *Tree) Put(ctx context.Context, collection, id string, doc gateway.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	leaf, err := t.leafFor(collection, id)
	if err != nil {
		return err
	}
	leaf.value = doc.Clone()
	return nil
}

func (t *Tree) Create(ctx context.Context, collection, id string, doc gateway.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	leaf, err := t.leafFor(collection, id)
	if err != nil {
		return err
	}
	if leaf.value != nil {
		return gateway.ErrConflict
	}
	leaf.value = doc.Clone()
	return nil
}

// leafFor crea el camino hasta el nodo del registro. Falla sin modificar
// nada si un segmento ya es registro o si id ya es una colección.
func (t *Tree) leafFor(collection, id string) (*node, error) {
	segs := strings.Split(collection, "/")

	n := t.root
	for _, seg := range segs {
		n = n.child(seg, false)
		if n == nil {
			break
		}
		if n.value != nil {
			return nil, fmt.Errorf("%w: %q is a record, not a collection", gateway.ErrValidation, seg)
		}
	}
	if n != nil {
		// un nodo sin value es colección aunque haya quedado vacía, como un bucket de bbolt
		if leaf := n.child(id, false); leaf != nil && leaf.value == nil {
			return nil, fmt.Errorf("%w: key collides with a nested collection", gateway.ErrValidation)
		}
	}

	n = t.root
	for _, seg := range segs {
		n = n.child(seg, true)
	}
	return n.child(id, true), nil
}

func (t *Tree) Get(ctx context.Context, collection, id string) (gateway.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	parent := t.walk(collection)
	if parent == nil {
		return nil, gateway.ErrNotFound
	}
	leaf := parent.child(id, false)
	if leaf == nil || leaf.value == nil {
		return nil, gateway.ErrNotFound
	}
	return leaf.value.Clone(), nil
}

func (t *Tree) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	parent := t.walk(collection)
	if parent == nil {
		return nil
	}
	leaf := parent.child(id, false)
	if leaf == nil || leaf.value == nil {
		return nil
	}
	delete(parent.children, id)
	return nil
}

func (t *Tree) List(ctx context.Context, collection string, q gateway.Query) ([]gateway.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	parent := t.walk(collection)
	if parent == nil {
		return []gateway.Entry{}, nil
	}

	out := make([]gateway.Entry, 0, len(parent.children))
	for key, c := range parent.children {
		if c.value == nil || !q.Matches(c.value) {
			continue
		}
		out = append(out, gateway.Entry{ID: key, Value: c.value.Clone()})
	}
	return sortAndLimit(out, q), nil
}

func (t *Tree) Ping(ctx context.Context) error { return ctx.Err() }

func (t *Tree) Close() error { return nil }

func (t *Tree) walk(collection string) *node {
	n := t.root
	for _, seg := range strings.Split(collection, "/") {
		n = n.child(seg, false)
		if n == nil {
			return nil
		}
	}
	return n
}

func sortAndLimit(out []gateway.Entry, q gateway.Query) []gateway.Entry {
	sort.Slice(out, func(i, j int) bool {
		if q.Descending {
			return out[i].ID > out[j].ID
		}
		return out[i].ID < out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}
