package gateway

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Document es la representación nativa común de ambos backends:
// un objeto JSON ya normalizado (string, float64, bool, nil, []any, map[string]any).
type Document map[string]any

// Entry es un registro listado dentro de una colección.
type Entry struct {
	ID    string
	Value Document
}

// Normalize serializa value a JSON y lo vuelve a decodificar como objeto.
// Todo lo que no sea serializable (canales, funciones, NaN), no sea un
// objeto JSON o no entre en todos los backends (ver checkStorable) es
// ErrValidation.
func Normalize(value any) (Document, error) {
	if value == nil {
		return nil, fmt.Errorf("%w: value is nil", ErrValidation)
	}

	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	trimmed := strings.TrimSpace(string(b))
	if !strings.HasPrefix(trimmed, "{") {
		return nil, fmt.Errorf("%w: value must encode to a JSON object", ErrValidation)
	}

	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := checkStorable(map[string]any(doc), ""); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return doc, nil
}

// checkStorable rechaza lo que algún backend no puede guardar tal cual:
// keys que empiezan con "$" o contienen "." (Mongo, y Lookup usa "." como
// separador) y el carácter NUL en keys o strings (JSONB de Postgres).
func checkStorable(v any, path string) error {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			switch {
			case k == "":
				return fmt.Errorf("empty key at %q", path)
			case strings.HasPrefix(k, "$"):
				return fmt.Errorf("key %q at %q must not start with '$'", k, path)
			case strings.Contains(k, "."):
				return fmt.Errorf("key %q at %q must not contain '.'", k, path)
			case strings.ContainsRune(k, 0):
				return fmt.Errorf("key at %q contains a NUL character", path)
			}
			if err := checkStorable(child, joinPath(path, k)); err != nil {
				return err
			}
		}
	case []any:
		for i, child := range t {
			if err := checkStorable(child, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case string:
		if strings.ContainsRune(t, 0) {
			return fmt.Errorf("string at %q contains a NUL character", path)
		}
	}
	return nil
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// NormalizeValue hace lo mismo para un escalar/array (filtros de List).
func NormalizeValue(value any) (any, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := checkStorable(out, ""); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return out, nil
}

// ValidateField valida el campo de un filtro ("email", "address.city").
func ValidateField(field string) error {
	for _, part := range strings.Split(field, ".") {
		if part == "" || strings.HasPrefix(part, "$") || strings.ContainsRune(part, 0) {
			return fmt.Errorf("%w: invalid filter field %q", ErrValidation, field)
		}
	}
	return nil
}

// Decode copia doc en out (struct con tags json).
func Decode(doc Document, out any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// Clone devuelve una copia profunda (los backends en memoria no comparten mapas con el caller).
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(Document(t).Clone())
	case Document:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}

// Lookup resuelve un campo con notación de puntos ("address.city").
func (d Document) Lookup(field string) (any, bool) {
	var cur any = map[string]any(d)
	for _, part := range strings.Split(field, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Matches aplica el filtro de igualdad de q sobre d. Sin Field, todo matchea.
// q.Equals ya debe venir normalizado (Gateway.List lo hace).
func (q Query) Matches(d Document) bool {
	if strings.TrimSpace(q.Field) == "" {
		return true
	}
	got, ok := d.Lookup(q.Field)
	if !ok {
		return false
	}
	return reflect.DeepEqual(got, q.Equals)
}
