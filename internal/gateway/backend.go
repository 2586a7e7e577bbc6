package gateway

import (
	"context"
	"time"
)

// Kind identifica la familia de backend a la que se rutea una categoría.
type Kind string

const (
	KindRealtime Kind = "realtime" // árbol jerárquico key/value
	KindDocument Kind = "document" // colecciones de documentos
)

func (k Kind) Valid() bool {
	return k == KindRealtime || k == KindDocument
}

// Backend es el contrato que implementan los adapters de storage.
// Los adapters reciben ids ya validados y documentos ya normalizados;
// deben envolver fallas de conexión con ErrBackendUnavailable y
// registros inexistentes con ErrNotFound.
type Backend interface {
	Name() string

	Put(ctx context.Context, collection, id string, doc Document) error
	// Create inserta solo si el registro no existe; si existe, ErrConflict.
	// El chequeo y la escritura son atómicos.
	Create(ctx context.Context, collection, id string, doc Document) error
	Get(ctx context.Context, collection, id string) (Document, error)
	// Delete es idempotente: borrar algo ausente no es error.
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string, q Query) ([]Entry, error)

	Ping(ctx context.Context) error
	Close() error
}

// Migrator es opcional: backends que necesitan preparar esquema/índices.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// Query filtra un List: igualdad sobre un campo (opcional), orden por id y límite.
type Query struct {
	Field  string
	Equals any

	Descending bool
	Limit      int // <= 0 = sin límite
}

type ChangeOp string

const (
	ChangePut    ChangeOp = "put"
	ChangeDelete ChangeOp = "delete"
)

// Change se publica después de cada escritura exitosa en una colección realtime.
type Change struct {
	Op         ChangeOp
	Collection string
	ID         string
	Value      Document // nil en delete
	At         time.Time
}

// Notifier recibe el change feed (p.ej. el hub de websockets).
type Notifier interface {
	Publish(ctx context.Context, c Change) error
}
