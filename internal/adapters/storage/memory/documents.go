package memory

import (
	"context"
	"sync"

	"medicare-now/internal/gateway"
)

var _ gateway.Backend = (*Documents)(nil)

// Documents es el backend de documentos en memoria (modo dev / tests).
type Documents struct {
	mu           sync.RWMutex
	byCollection map[string]map[string]gateway.Document
}

func NewDocuments() *Documents {
	return &Documents{
		byCollection: make(map[string]map[string]gateway.Document),
	}
}

func (d *Documents) Name() string { return "memory-documents" }

func (d *Documents) Put(ctx context.Context, collection, id string, doc gateway.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	col, ok := d.byCollection[collection]
	if !ok {
		col = make(map[string]gateway.Document)
		d.byCollection[collection] = col
	}
	col[id] = doc.Clone()
	return nil
}

func (d *Documents) Create(ctx context.Context, collection, id string, doc gateway.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	col, ok := d.byCollection[collection]
	if !ok {
		col = make(map[string]gateway.Document)
		d.byCollection[collection] = col
	}
	if _, exists := col[id]; exists {
		return gateway.ErrConflict
	}
	col[id] = doc.Clone()
	return nil
}

func (d *Documents) Get(ctx context.Context, collection, id string) (gateway.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	doc, ok := d.byCollection[collection][id]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	return doc.Clone(), nil
}

func (d *Documents) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if col, ok := d.byCollection[collection]; ok {
		delete(col, id)
	}
	return nil
}

func (d *Documents) List(ctx context.Context, collection string, q gateway.Query) ([]gateway.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	col := d.byCollection[collection]
	out := make([]gateway.Entry, 0, len(col))
	for id, doc := range col {
		if !q.Matches(doc) {
			continue
		}
		out = append(out, gateway.Entry{ID: id, Value: doc.Clone()})
	}
	return sortAndLimit(out, q), nil
}

func (d *Documents) Ping(ctx context.Context) error { return ctx.Err() }

func (d *Documents) Close() error { return nil }
