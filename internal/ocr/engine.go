package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrEngineClosed is returned by an Engine after Close
var ErrEngineClosed = errors.New("ocr engine closed")

// Config configures an OCR worker
type Config struct {
	// Language is the recognition language, e.g. "eng"
	Language string
	// Whitelist limits recognized characters; empty allows everything
	Whitelist string
}

// Recognizer turns an image into text
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, contentType string) (string, error)
}

// Worker is a loaded OCR backend. Workers are not reentrant.
type Worker interface {
	Recognizer
	Terminate() error
}

// Loader loads the language, initializes the backend and applies the whitelist
type Loader func(ctx context.Context, cfg Config) (Worker, error)

// Engine owns a single Worker. The worker is loaded on first use, shared by
// every caller, used by one caller at a time and terminated by Close.
type Engine struct {
	cfg  Config
	load Loader

	init singleflight.Group

	mu     sync.Mutex // guards worker and closed
	worker Worker
	closed bool

	run sync.Mutex // held while the worker recognizes
}

// NewEngine creates an Engine. Nothing is loaded until the first Recognize.
func NewEngine(cfg Config, load Loader) *Engine {
	return &Engine{cfg: cfg, load: load}
}

// Recognize runs OCR on image, loading the worker if needed
func (e *Engine) Recognize(ctx context.Context, image []byte, contentType string) (text string, err error) {
	w, err := e.acquire(ctx)
	if err != nil {
		return "", err
	}

	e.run.Lock()
	defer e.run.Unlock()

	if e.isClosed() {
		return "", ErrEngineClosed
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ocr worker panicked: %v", r)
		}
	}()
	return w.Recognize(ctx, image, contentType)
}

// Close terminates the worker. It waits for an in-flight Recognize and is safe
// to call more than once.
func (e *Engine) Close() error {
	e.run.Lock()
	defer e.run.Unlock()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	w := e.worker
	e.worker = nil
	e.mu.Unlock()

	if w == nil {
		return nil
	}
	slog.Info("Terminating OCR worker")
	if err := w.Terminate(); err != nil {
		return fmt.Errorf("terminating ocr worker: %w", err)
	}
	return nil
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// current returns the loaded worker, if any
func (e *Engine) current() (Worker, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}
	return e.worker, nil
}

// acquire returns the worker, loading it once for all concurrent callers.
// A failed load is reported to every waiting caller and retried on the next call.
func (e *Engine) acquire(ctx context.Context) (Worker, error) {
	if w, err := e.current(); err != nil || w != nil {
		return w, err
	}

	v, err, _ := e.init.Do("worker", func() (any, error) {
		if w, err := e.current(); err != nil || w != nil {
			return w, err
		}

		slog.Info("Loading OCR worker", "language", e.cfg.Language)
		w, err := e.safeLoad(ctx)
		if err != nil {
			slog.Error("Failed to load OCR worker", "error", err)
			return nil, fmt.Errorf("loading ocr worker: %w", err)
		}

		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed {
			_ = w.Terminate()
			return nil, ErrEngineClosed
		}
		e.worker = w
		return w, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Worker), nil
}

func (e *Engine) safeLoad(ctx context.Context) (w Worker, err error) {
	defer func() {
		if r := recover(); r != nil {
			w, err = nil, fmt.Errorf("ocr loader panicked: %v", r)
		}
	}()
	w, err = e.load(ctx, e.cfg)
	if err == nil && w == nil {
		err = errors.New("loader returned no worker")
	}
	return w, err
}
