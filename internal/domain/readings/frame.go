package readings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var ErrInvalidFrame = errors.New("data format error")

// ParseFrame decodifica un frame JSON. Los tres campos son obligatorios.
func ParseFrame(b []byte) (Frame, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return Frame{}, fmt.Errorf("%w: empty frame", ErrInvalidFrame)
	}

	var raw struct {
		Pulse       *json.Number `json:"pulse"`
		Temperature *float64     `json:"temperature"`
		Humidity    *float64     `json:"humidity"`
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if raw.Pulse == nil || raw.Temperature == nil || raw.Humidity == nil {
		return Frame{}, fmt.Errorf("%w: pulse, temperature and humidity are required", ErrInvalidFrame)
	}

	pulse, err := raw.Pulse.Int64()
	if err != nil || pulse < 0 || pulse > math.MaxInt32 {
		return Frame{}, fmt.Errorf("%w: pulse must be a non-negative integer", ErrInvalidFrame)
	}

	return Frame{
		Pulse:       int(pulse),
		Temperature: *raw.Temperature,
		Humidity:    *raw.Humidity,
	}, nil
}
