// Package spp es el puente con el dispositivo de signos vitales: lee frames
// JSON delimitados por "\n" desde un stream serie (expuesto por TCP) y se
// reconecta solo cuando el link se cae.
package spp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"medicare-now/internal/domain/readings"
	"medicare-now/internal/platform/logger"
)

const (
	DefaultMaxLineBytes   = 4 << 10
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultMaxBackoff     = 30 * time.Second
	DefaultDialTimeout    = 5 * time.Second
)

var ErrNotConnected = errors.New("device not connected")

// Dialer abre el stream hacia el dispositivo.
type Dialer interface {
	Dial(ctx context.Context) (io.ReadWriteCloser, error)
}

// TCPDialer conecta a un bridge serie/radio que expone el puerto por TCP.
type TCPDialer struct {
	Addr    string
	Timeout time.Duration
}

func (d TCPDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	nd := net.Dialer{Timeout: timeout}
	return nd.DialContext(ctx, "tcp", d.Addr)
}

// Handlers se llaman desde la goroutine de Run, en orden de llegada.
type Handlers struct {
	OnFrame   func(readings.Frame)
	OnInvalid func(line string, err error)
	// OnStatus: err es la causa de la desconexión (nil al conectar).
	OnStatus func(connected bool, err error)
}

type Options struct {
	Dialer   Dialer
	Handlers Handlers

	MaxLineBytes   int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	Logger logger.Logger
}

type Bridge struct {
	dialer  Dialer
	h       Handlers
	maxLine int
	initial time.Duration
	max     time.Duration
	log     logger.Logger

	mu   sync.Mutex
	conn io.ReadWriteCloser
}

func New(opts Options) (*Bridge, error) {
	if opts.Dialer == nil {
		return nil, errors.New("spp: dialer is required")
	}
	b := &Bridge{
		dialer:  opts.Dialer,
		h:       opts.Handlers,
		maxLine: opts.MaxLineBytes,
		initial: opts.InitialBackoff,
		max:     opts.MaxBackoff,
		log:     opts.Logger,
	}
	if b.maxLine <= 0 {
		b.maxLine = DefaultMaxLineBytes
	}
	if b.initial <= 0 {
		b.initial = DefaultInitialBackoff
	}
	if b.max < b.initial {
		b.max = DefaultMaxBackoff
	}
	if b.log == nil {
		b.log = logger.Nop()
	}
	b.log = b.log.With(map[string]any{"component": "device"})
	return b, nil
}

// Run conecta, lee y reconecta hasta que ctx termine. Siempre devuelve ctx.Err().
func (b *Bridge) Run(ctx context.Context) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = b.initial
	eb.MaxInterval = b.max

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, err := b.dialer.Dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			wait := eb.NextBackOff()
			b.log.Warn("dial failed", map[string]any{"err": err, "retry_in": wait.String()})
			b.status(false, err)
			if !sleep(ctx, wait) {
				return ctx.Err()
			}
			continue
		}

		eb.Reset()
		b.setConn(conn)
		b.log.Info("device connected", nil)
		b.status(true, nil)

		err = b.readLoop(ctx, conn)

		b.setConn(nil)
		_ = conn.Close()
		if ctx.Err() != nil {
			b.status(false, nil)
			return ctx.Err()
		}

		wait := eb.NextBackOff()
		b.log.Warn("device disconnected", map[string]any{"err": err, "retry_in": wait.String()})
		b.status(false, err)
		if !sleep(ctx, wait) {
			return ctx.Err()
		}
	}
}

// Send escribe en el link actual (comandos hacia el dispositivo).
func (b *Bridge) Send(p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return ErrNotConnected
	}
	_, err := b.conn.Write(p)
	return err
}

func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

func (b *Bridge) readLoop(ctx context.Context, conn io.ReadWriteCloser) error {
	// cierra el link si ctx termina mientras Scan está bloqueado
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 512), b.maxLine)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		f, err := readings.ParseFrame([]byte(line))
		if err != nil {
			b.log.Debug("invalid frame", map[string]any{"line": line, "err": err})
			if b.h.OnInvalid != nil {
				b.h.OnInvalid(line, err)
			}
			continue
		}
		if b.h.OnFrame != nil {
			b.h.OnFrame(f)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read frames: %w", err)
	}
	return io.EOF
}

func (b *Bridge) setConn(c io.ReadWriteCloser) {
	b.mu.Lock()
	b.conn = c
	b.mu.Unlock()
}

func (b *Bridge) status(connected bool, err error) {
	if b.h.OnStatus != nil {
		b.h.OnStatus(connected, err)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
