// Package gateway expone un único contrato put/get/delete/list sobre dos
// backends intercambiables: un árbol jerárquico (realtime) y un store de
// documentos. Cada categoría de datos (primer segmento del path de la
// colección) vive en exactamente uno de los dos.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"medicare-now/internal/platform/logger"
)

const (
	DefaultRetryAttempts        uint = 3
	DefaultRetryInitialInterval      = 100 * time.Millisecond
)

// DefaultRoutes: lecturas de sensores al árbol realtime, el resto a documentos.
func DefaultRoutes() map[string]Kind {
	return map[string]Kind{
		"health_data": KindRealtime,
	}
}

type Options struct {
	Realtime Backend
	Document Backend

	// Routes se aplica encima de DefaultRoutes.
	Routes map[string]Kind
	// DefaultKind para categorías sin ruta (default: document).
	DefaultKind Kind

	RetryAttempts        uint
	RetryInitialInterval time.Duration

	Notifier Notifier // opcional
	Logger   logger.Logger
}

type Gateway struct {
	backends map[Kind]Backend
	routes   map[string]Kind
	fallback Kind

	attempts uint
	interval time.Duration

	notifier Notifier
	log      logger.Logger
	now      func() time.Time
}

func New(opts Options) (*Gateway, error) {
	if opts.Realtime == nil || opts.Document == nil {
		return nil, errors.New("gateway: realtime and document backends are required")
	}

	fallback := opts.DefaultKind
	if fallback == "" {
		fallback = KindDocument
	}
	if !fallback.Valid() {
		return nil, fmt.Errorf("gateway: invalid default kind %q", fallback)
	}

	routes := DefaultRoutes()
	for category, kind := range opts.Routes {
		category = strings.TrimSpace(category)
		if category == "" {
			continue
		}
		if !kind.Valid() {
			return nil, fmt.Errorf("gateway: invalid kind %q for category %q", kind, category)
		}
		routes[category] = kind
	}

	attempts := opts.RetryAttempts
	if attempts == 0 {
		attempts = DefaultRetryAttempts
	}
	interval := opts.RetryInitialInterval
	if interval <= 0 {
		interval = DefaultRetryInitialInterval
	}

	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Gateway{
		backends: map[Kind]Backend{
			KindRealtime: opts.Realtime,
			KindDocument: opts.Document,
		},
		routes:   routes,
		fallback: fallback,
		attempts: attempts,
		interval: interval,
		notifier: opts.Notifier,
		log:      log.With(map[string]any{"component": "gateway"}),
		now:      time.Now,
	}, nil
}

// Route devuelve el backend que atiende una colección.
func (g *Gateway) Route(collection string) Kind {
	if k, ok := g.routes[Category(collection)]; ok {
		return k
	}
	return g.fallback
}

// Put guarda (o reemplaza) un registro.
func (g *Gateway) Put(ctx context.Context, collection, id string, value any) error {
	path, err := g.target(collection, id)
	if err != nil {
		return err
	}
	doc, err := Normalize(value)
	if err != nil {
		return err
	}

	kind := g.Route(path)
	b := g.backends[kind]
	if err := g.do(ctx, "put", b, func() error { return b.Put(ctx, path, id, doc) }); err != nil {
		g.log.Error("put failed", map[string]any{"backend": b.Name(), "collection": path, "id": id, "err": err})
		return err
	}

	if kind == KindRealtime {
		g.publish(ctx, Change{Op: ChangePut, Collection: path, ID: id, Value: doc.Clone(), At: g.now()})
	}
	return nil
}

// Create guarda un registro nuevo; si ya existe devuelve ErrConflict y no
// toca lo guardado. Sirve para reservar claves únicas (p.ej. un email).
func (g *Gateway) Create(ctx context.Context, collection, id string, value any) error {
	path, err := g.target(collection, id)
	if err != nil {
		return err
	}
	doc, err := Normalize(value)
	if err != nil {
		return err
	}

	kind := g.Route(path)
	b := g.backends[kind]
	if err := g.do(ctx, "create", b, func() error { return b.Create(ctx, path, id, doc) }); err != nil {
		if !errors.Is(err, ErrConflict) {
			g.log.Error("create failed", map[string]any{"backend": b.Name(), "collection": path, "id": id, "err": err})
		}
		return err
	}

	if kind == KindRealtime {
		g.publish(ctx, Change{Op: ChangePut, Collection: path, ID: id, Value: doc.Clone(), At: g.now()})
	}
	return nil
}

// Get devuelve el registro o ErrNotFound.
func (g *Gateway) Get(ctx context.Context, collection, id string) (Document, error) {
	path, err := g.target(collection, id)
	if err != nil {
		return nil, err
	}

	b := g.backends[g.Route(path)]
	var doc Document
	err = g.do(ctx, "get", b, func() error {
		d, err := b.Get(ctx, path, id)
		if err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetInto es Get + Decode.
func (g *Gateway) GetInto(ctx context.Context, collection, id string, out any) error {
	doc, err := g.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	return Decode(doc, out)
}

// Delete es idempotente.
func (g *Gateway) Delete(ctx context.Context, collection, id string) error {
	path, err := g.target(collection, id)
	if err != nil {
		return err
	}

	kind := g.Route(path)
	b := g.backends[kind]
	if err := g.do(ctx, "delete", b, func() error { return b.Delete(ctx, path, id) }); err != nil {
		g.log.Error("delete failed", map[string]any{"backend": b.Name(), "collection": path, "id": id, "err": err})
		return err
	}

	if kind == KindRealtime {
		g.publish(ctx, Change{Op: ChangeDelete, Collection: path, ID: id, At: g.now()})
	}
	return nil
}

// List devuelve los registros de una colección ordenados por id.
func (g *Gateway) List(ctx context.Context, collection string, q Query) ([]Entry, error) {
	parts, err := SplitCollection(collection)
	if err != nil {
		return nil, err
	}
	path := strings.Join(parts, "/")

	if strings.TrimSpace(q.Field) != "" {
		if err := ValidateField(q.Field); err != nil {
			return nil, err
		}
		v, err := NormalizeValue(q.Equals)
		if err != nil {
			return nil, err
		}
		q.Equals = v
	}

	b := g.backends[g.Route(path)]
	var out []Entry
	err = g.do(ctx, "list", b, func() error {
		entries, err := b.List(ctx, path, q)
		if err != nil {
			return err
		}
		out = entries
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BackendStatus es el resultado de Ping por backend.
type BackendStatus struct {
	Kind Kind
	Name string
	Err  error
}

func (g *Gateway) Ping(ctx context.Context) []BackendStatus {
	out := make([]BackendStatus, 0, len(g.backends))
	for _, k := range []Kind{KindRealtime, KindDocument} {
		b := g.backends[k]
		out = append(out, BackendStatus{Kind: k, Name: b.Name(), Err: b.Ping(ctx)})
	}
	return out
}

// Migrate prepara los backends que lo necesiten.
func (g *Gateway) Migrate(ctx context.Context) error {
	for _, k := range []Kind{KindRealtime, KindDocument} {
		m, ok := g.backends[k].(Migrator)
		if !ok {
			continue
		}
		if err := m.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate %s backend: %w", k, err)
		}
	}
	return nil
}

func (g *Gateway) Close() error {
	return errors.Join(
		g.backends[KindRealtime].Close(),
		g.backends[KindDocument].Close(),
	)
}

func (g *Gateway) target(collection, id string) (string, error) {
	parts, err := SplitCollection(collection)
	if err != nil {
		return "", err
	}
	if err := ValidateRecordID(id); err != nil {
		return "", err
	}
	return strings.Join(parts, "/"), nil
}

// do ejecuta fn con reintentos exponenciales, solo para fallas de conectividad.
func (g *Gateway) do(ctx context.Context, op string, b Backend, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = g.interval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := fn()
		if err != nil && !retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(g.attempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			g.log.Warn("backend unavailable, retrying", map[string]any{
				"op":      op,
				"backend": b.Name(),
				"wait":    wait.String(),
				"err":     err,
			})
		}),
	)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrBackendUnavailable) {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return err
}

func (g *Gateway) publish(ctx context.Context, c Change) {
	if g.notifier == nil {
		return
	}
	if err := g.notifier.Publish(ctx, c); err != nil {
		g.log.Warn("change feed publish failed", map[string]any{"collection": c.Collection, "id": c.ID, "err": err})
	}
}
