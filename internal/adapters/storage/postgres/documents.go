package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"medicare-now/internal/gateway"
)

var _ gateway.Backend = (*Documents)(nil)
var _ gateway.Migrator = (*Documents)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT        NOT NULL,
	id         TEXT        NOT NULL,
	body       JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_body_gin ON documents USING GIN (body jsonb_path_ops);
`

// Documents guarda cada registro como una fila JSONB (collection, id).
type Documents struct {
	db *sql.DB
}

func NewDocuments(db *sql.DB) *Documents {
	return &Documents{db: db}
}

func (d *Documents) Name() string { return "postgres" }

func (d *Documents) Migrate(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, schema)
	return mapErr(err)
}

func (d *Documents) Put(ctx context.Context, collection, id string, doc gateway.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", gateway.ErrValidation, err)
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, body, updated_at)
		VALUES ($1, $2, $3::jsonb, now())
		ON CONFLICT (collection, id)
		DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at
	`, collection, id, string(body))
	return mapErr(err)
}

func (d *Documents) Create(ctx context.Context, collection, id string, doc gateway.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", gateway.ErrValidation, err)
	}

	res, err := d.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, body, updated_at)
		VALUES ($1, $2, $3::jsonb, now())
		ON CONFLICT (collection, id) DO NOTHING
	`, collection, id, string(body))
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr(err)
	}
	if n == 0 {
		return gateway.ErrConflict
	}
	return nil
}

func (d *Documents) Get(ctx context.Context, collection, id string) (gateway.Document, error) {
	var raw []byte
	err := d.db.QueryRowContext(ctx, `
		SELECT body FROM documents WHERE collection = $1 AND id = $2
	`, collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gateway.ErrNotFound
	}
	if err != nil {
		return nil, mapErr(err)
	}

	var doc gateway.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *Documents) Delete(ctx context.Context, collection, id string) error {
	_, err := d.db.ExecContext(ctx, `
		DELETE FROM documents WHERE collection = $1 AND id = $2
	`, collection, id)
	return mapErr(err)
}

func (d *Documents) List(ctx context.Context, collection string, q gateway.Query) ([]gateway.Entry, error) {
	var (
		sb   strings.Builder
		args = []any{collection}
	)
	sb.WriteString(`SELECT id, body FROM documents WHERE collection = $1`)

	if strings.TrimSpace(q.Field) != "" {
		filter, err := containment(q.Field, q.Equals)
		if err != nil {
			return nil, err
		}
		args = append(args, filter)
		sb.WriteString(fmt.Sprintf(` AND body @> $%d::jsonb`, len(args)))
	}

	if q.Descending {
		sb.WriteString(` ORDER BY id DESC`)
	} else {
		sb.WriteString(` ORDER BY id ASC`)
	}
	// con filtro el límite va después de Matches: @> puede traer filas de más
	if q.Limit > 0 && strings.TrimSpace(q.Field) == "" {
		args = append(args, q.Limit)
		sb.WriteString(fmt.Sprintf(` LIMIT $%d`, len(args)))
	}

	rows, err := d.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []gateway.Entry{}
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, mapErr(err)
		}
		var doc gateway.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		// @> también matchea arrays que contienen el valor; la igualdad exacta se confirma acá
		if !q.Matches(doc) {
			continue
		}
		out = append(out, gateway.Entry{ID: id, Value: doc})
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (d *Documents) Ping(ctx context.Context) error {
	return mapErr(d.db.PingContext(ctx))
}

func (d *Documents) Close() error {
	return d.db.Close()
}

// containment arma {"a":{"b":value}} para "a.b" = value.
func containment(field string, value any) (string, error) {
	parts := strings.Split(field, ".")
	var cur any = value
	for i := len(parts) - 1; i >= 0; i-- {
		cur = map[string]any{parts[i]: cur}
	}
	b, err := json.Marshal(cur)
	if err != nil {
		return "", fmt.Errorf("%w: %v", gateway.ErrValidation, err)
	}
	return string(b), nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}

	var (
		connErr *pgconn.ConnectError
		pgErr   *pgconn.PgError
	)
	switch {
	// clase 22 (data exception): p.ej. 22P05, \u0000 no entra en JSONB
	case errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "22"):
		return fmt.Errorf("%w: %s", gateway.ErrValidation, pgErr.Message)
	case pgErr != nil && pgErr.Code == "23505":
		return fmt.Errorf("%w: %s", gateway.ErrConflict, pgErr.Message)
	case errors.As(err, &connErr),
		pgconn.Timeout(err),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", gateway.ErrBackendUnavailable, err)
	default:
		return err
	}
}
