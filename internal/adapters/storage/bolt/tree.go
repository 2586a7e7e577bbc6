// Package bolt implementa el backend realtime sobre un archivo bbolt:
// cada segmento del path de la colección es un bucket anidado y cada
// registro es una key con su documento en JSON.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"medicare-now/internal/gateway"
)

var _ gateway.Backend = (*Tree)(nil)
var _ gateway.Migrator = (*Tree)(nil)

var rootBucket = []byte("medicare")

type Tree struct {
	db   *bbolt.DB
	path string
}

// Open abre (o crea) el archivo. Timeout acota la espera del lock del archivo.
func Open(path string, timeout time.Duration) (*Tree, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("bolt: path is required")
	}
	if timeout <= 0 {
		timeout = time.Second
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("%w: open bolt %s: %v", gateway.ErrBackendUnavailable, path, err)
	}

	t := &Tree{db: db, path: path}
	if err := t.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return t, nil
}

func (t *Tree) Name() string { return "bolt" }

func (t *Tree) Migrate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapErr(t.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rootBucket)
		return err
	}))
}

func (t *Tree) Put(ctx context.Context, collection, id string, doc gateway.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", gateway.ErrValidation, err)
	}

	return mapErr(t.db.Update(func(tx *bbolt.Tx) error {
		b, err := createBucketFor(tx, collection)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), body)
	}))
}

func (t *Tree) Create(ctx context.Context, collection, id string, doc gateway.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", gateway.ErrValidation, err)
	}

	// bbolt serializa las transacciones de escritura: Get + Put es atómico
	return mapErr(t.db.Update(func(tx *bbolt.Tx) error {
		b, err := createBucketFor(tx, collection)
		if err != nil {
			return err
		}
		if b.Bucket([]byte(id)) != nil {
			return bbolt.ErrIncompatibleValue
		}
		if b.Get([]byte(id)) != nil {
			return gateway.ErrConflict
		}
		return b.Put([]byte(id), body)
	}))
}

func (t *Tree) Get(ctx context.Context, collection, id string) (gateway.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc gateway.Document
	err := t.db.View(func(tx *bbolt.Tx) error {
		b := bucketFor(tx, collection)
		if b == nil {
			return gateway.ErrNotFound
		}
		raw := b.Get([]byte(id))
		if raw == nil {
			return gateway.ErrNotFound
		}
		return json.Unmarshal(raw, &doc)
	})
	if err != nil {
		return nil, mapErr(err)
	}
	return doc, nil
}

func (t *Tree) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return mapErr(t.db.Update(func(tx *bbolt.Tx) error {
		b := bucketFor(tx, collection)
		if b == nil {
			return nil
		}
		// borrar una key que es sub-bucket da ErrIncompatibleValue: ahí no hay registro
		if err := b.Delete([]byte(id)); err != nil && !errors.Is(err, bbolt.ErrIncompatibleValue) {
			return err
		}
		return nil
	}))
}

func (t *Tree) List(ctx context.Context, collection string, q gateway.Query) ([]gateway.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := []gateway.Entry{}
	err := t.db.View(func(tx *bbolt.Tx) error {
		b := bucketFor(tx, collection)
		if b == nil {
			return nil
		}

		c := b.Cursor()
		first, step := c.First, c.Next
		if q.Descending {
			first, step = c.Last, c.Prev
		}

		for k, v := first(); k != nil; k, v = step() {
			if v == nil {
				continue // sub-bucket
			}
			var doc gateway.Document
			if err := json.Unmarshal(v, &doc); err != nil {
				return err
			}
			if !q.Matches(doc) {
				continue
			}
			out = append(out, gateway.Entry{ID: string(k), Value: doc})
			if q.Limit > 0 && len(out) >= q.Limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (t *Tree) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapErr(t.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(rootBucket) == nil {
			return fmt.Errorf("%w: root bucket missing", gateway.ErrBackendUnavailable)
		}
		return nil
	}))
}

func (t *Tree) Close() error {
	return t.db.Close()
}

func createBucketFor(tx *bbolt.Tx, collection string) (*bbolt.Bucket, error) {
	b, err := tx.CreateBucketIfNotExists(rootBucket)
	if err != nil {
		return nil, err
	}
	for _, seg := range strings.Split(collection, "/") {
		b, err = b.CreateBucketIfNotExists([]byte(seg))
		if err != nil {
			return nil, err
		}
	}
	return b, nil
}

func bucketFor(tx *bbolt.Tx, collection string) *bbolt.Bucket {
	b := tx.Bucket(rootBucket)
	for _, seg := range strings.Split(collection, "/") {
		if b == nil {
			return nil
		}
		b = b.Bucket([]byte(seg))
	}
	return b
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gateway.ErrNotFound), errors.Is(err, gateway.ErrValidation),
		errors.Is(err, gateway.ErrBackendUnavailable), errors.Is(err, gateway.ErrConflict):
		return err
	case errors.Is(err, bbolt.ErrIncompatibleValue):
		return fmt.Errorf("%w: key collides with a nested collection", gateway.ErrValidation)
	case errors.Is(err, bbolt.ErrTimeout), errors.Is(err, bbolt.ErrDatabaseNotOpen):
		return fmt.Errorf("%w: %v", gateway.ErrBackendUnavailable, err)
	default:
		return err
	}
}
