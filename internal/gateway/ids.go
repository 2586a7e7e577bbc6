package gateway

import (
	"fmt"
	"strings"
)

const maxSegmentBytes = 768

// Caracteres prohibidos en una key (mismas reglas que un árbol tipo realtime DB).
const forbiddenKeyChars = ".#$[]/"

// SplitCollection valida un path de colección ("health_data/uid") y devuelve sus segmentos.
func SplitCollection(collection string) ([]string, error) {
	collection = strings.Trim(strings.TrimSpace(collection), "/")
	if collection == "" {
		return nil, fmt.Errorf("%w: collection is required", ErrValidation)
	}
	parts := strings.Split(collection, "/")
	for _, p := range parts {
		if err := validateSegment(p); err != nil {
			return nil, fmt.Errorf("%w: collection %q: %v", ErrValidation, collection, err)
		}
	}
	return parts, nil
}

// ValidateRecordID valida el id de un registro (un solo segmento).
func ValidateRecordID(id string) error {
	if err := validateSegment(id); err != nil {
		return fmt.Errorf("%w: record id %q: %v", ErrValidation, id, err)
	}
	return nil
}

// Category es el primer segmento del path; decide el backend.
func Category(collection string) string {
	collection = strings.Trim(strings.TrimSpace(collection), "/")
	if i := strings.IndexByte(collection, '/'); i >= 0 {
		return collection[:i]
	}
	return collection
}

func validateSegment(s string) error {
	if s == "" || strings.TrimSpace(s) != s {
		return fmt.Errorf("empty or padded segment")
	}
	if len(s) > maxSegmentBytes {
		return fmt.Errorf("segment longer than %d bytes", maxSegmentBytes)
	}
	if strings.ContainsAny(s, forbiddenKeyChars) {
		return fmt.Errorf("segment contains one of %q", forbiddenKeyChars)
	}
	return nil
}
