// Package dmaengine publishes a generic-DMA memory domain backed by a bounded
// worker pool that performs asynchronous scatter-gather copies out of an
// I/O-virtual arena. It is the local copy engine consumers fall back to when
// no RDMA path applies.
package dmaengine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"memdomain/internal/memdomain"
	"memdomain/pkg/platform/sentinel"
)

// DeviceID identifies the built-in generic DMA copy engine.
const DeviceID = "SYSTEM_DMA_ENGINE"

// Config sizes the copy engine.
type Config struct {
	// Workers is the number of copy goroutines.
	Workers int
	// QueueDepth bounds fetches in flight; submissions beyond it fail with
	// ErrUnavailable rather than blocking the caller.
	QueueDepth int
	// ArenaBytes is the size of the engine's I/O-virtual address space.
	ArenaBytes int
}

type job struct {
	ctx  context.Context
	src  []memdomain.Descriptor
	dst  [][]byte
	done memdomain.FetchCompletion
}

// Engine owns the arena and the worker pool, and the memory domain it
// registered for them.
type Engine struct {
	arena    []byte
	logger   *slog.Logger
	registry *memdomain.Registry
	domain   *memdomain.Domain

	// mu serializes submissions against Close so a fetch never races the
	// channel close.
	mu      sync.RWMutex
	jobs    chan job
	pending *semaphore.Weighted
	group   errgroup.Group
	closed  atomic.Bool
}

// Option configures an Engine.
type Option func(e *Engine)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New allocates the arena, starts the worker pool and registers the generic
// DMA domain with its translate and fetch capabilities attached.
func New(registry *memdomain.Registry, cfg Config, opts ...Option) (*Engine, error) {
	if cfg.Workers <= 0 || cfg.QueueDepth <= 0 || cfg.ArenaBytes <= 0 {
		return nil, fmt.Errorf("dma engine config %+v: %w", cfg, sentinel.ErrInvalidArgument)
	}

	e := &Engine{
		arena:    make([]byte, cfg.ArenaBytes),
		registry: registry,
		jobs:     make(chan job, cfg.QueueDepth),
		pending:  semaphore.NewWeighted(int64(cfg.QueueDepth)),
	}
	for _, opt := range opts {
		opt(e)
	}

	domain, err := registry.Create(memdomain.DeviceTypeDMA, nil, DeviceID)
	if err != nil {
		return nil, fmt.Errorf("register dma domain: %w", err)
	}
	domain.SetTranslation(e.translate)
	domain.SetFetch(e.fetch)
	e.domain = domain

	for i := 0; i < cfg.Workers; i++ {
		e.group.Go(e.worker)
	}

	return e, nil
}

// Domain returns the registered memory domain.
func (e *Engine) Domain() *memdomain.Domain {
	return e.domain
}

// Buffer returns a writable view of [addr, addr+length) in the arena, so
// producers can stage bytes at I/O-virtual addresses before handing
// descriptors to consumers.
func (e *Engine) Buffer(addr, length uint64) ([]byte, error) {
	if err := e.checkRange(addr, length); err != nil {
		return nil, err
	}
	return e.arena[addr : addr+length], nil
}

// Close rejects new fetches, waits for in-flight copies to drain and
// unregisters the domain.
func (e *Engine) Close() {
	if !e.closed.CompareAndSwap(false, true) {
		return
	}
	e.mu.Lock()
	close(e.jobs)
	e.mu.Unlock()
	_ = e.group.Wait()
	e.registry.Destroy(e.domain)
}

// translate re-describes an arena range for another generic DMA device: the
// I/O-virtual address is the physical handle here, so the descriptor passes
// through with the destination echoed.
func (e *Engine) translate(_ context.Context, _ *memdomain.Domain, _ any,
	dstDomain *memdomain.Domain, _ *memdomain.TranslationContext,
	addr, length uint64) (*memdomain.TranslationResult, error) {

	if dstDomain.DeviceType() != memdomain.DeviceTypeDMA {
		return nil, fmt.Errorf("dma translate: destination device type %s: %w",
			dstDomain.DeviceType(), sentinel.ErrNotSupported)
	}
	if err := e.checkRange(addr, length); err != nil {
		return nil, err
	}

	return &memdomain.TranslationResult{
		Size:      memdomain.TranslationResultSize,
		Addr:      addr,
		Len:       length,
		DstDomain: dstDomain,
	}, nil
}

// fetch validates the request and queues the copy. Validation failures and a
// full queue are start failures: the notifier never fires for them.
func (e *Engine) fetch(ctx context.Context, _ *memdomain.Domain, _ any,
	src []memdomain.Descriptor, dst [][]byte, done memdomain.FetchCompletion) error {

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed.Load() {
		return fmt.Errorf("dma fetch: engine closed: %w", sentinel.ErrUnavailable)
	}

	var capacity uint64
	for _, buf := range dst {
		capacity += uint64(len(buf))
	}
	total := memdomain.TotalLen(src)
	if capacity < total {
		return fmt.Errorf("dma fetch: destination capacity %d below source length %d: %w",
			capacity, total, sentinel.ErrInvalidArgument)
	}
	for _, desc := range src {
		if err := e.checkRange(desc.Addr, desc.Len); err != nil {
			return err
		}
	}

	if !e.pending.TryAcquire(1) {
		return fmt.Errorf("dma fetch: queue full: %w", sentinel.ErrUnavailable)
	}
	e.jobs <- job{ctx: ctx, src: src, dst: dst, done: done}
	return nil
}

func (e *Engine) worker() error {
	for j := range e.jobs {
		e.copyJob(j)
		e.pending.Release(1)
	}
	return nil
}

// copyJob gathers the source ranges and scatters them across the destination
// buffers in order. Per-entry distribution is an implementation detail; only
// the aggregate byte count is contractual.
func (e *Engine) copyJob(j job) {
	bufIdx, bufOff := 0, 0
	for _, desc := range j.src {
		data := e.arena[desc.Addr : desc.Addr+desc.Len]
		for len(data) > 0 {
			n := copy(j.dst[bufIdx][bufOff:], data)
			data = data[n:]
			bufOff += n
			if bufOff == len(j.dst[bufIdx]) {
				bufIdx++
				bufOff = 0
			}
		}
	}

	if e.logger != nil {
		e.logger.DebugContext(j.ctx, "dma copy complete",
			"bytes", memdomain.TotalLen(j.src), "segments", len(j.src),
		)
	}
	if j.done != nil {
		j.done(j.dst, nil)
	}
}

func (e *Engine) checkRange(addr, length uint64) error {
	if addr+length > uint64(len(e.arena)) || addr+length < addr {
		return fmt.Errorf("range [0x%x, 0x%x) outside arena of %d bytes: %w",
			addr, addr+length, len(e.arena), sentinel.ErrInvalidArgument)
	}
	return nil
}
