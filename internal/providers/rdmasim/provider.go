package rdmasim

import (
	"context"
	"fmt"
	"log/slog"

	"memdomain/internal/memdomain"
	"memdomain/pkg/platform/sentinel"
)

// Provider publishes one RDMA memory domain under the reserved RDMA device id
// and implements its translate and fetch capabilities against the simulated
// verbs backend.
type Provider struct {
	backend  *Backend
	logger   *slog.Logger
	registry *memdomain.Registry
	domain   *memdomain.Domain
	pd       PD
}

// Option configures a Provider.
type Option func(p *Provider)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// Register allocates a protection domain, registers the canonical RDMA memory
// domain and attaches the provider's capabilities to it.
func Register(registry *memdomain.Registry, backend *Backend, opts ...Option) (*Provider, error) {
	p := &Provider{backend: backend, registry: registry}
	for _, opt := range opts {
		opt(p)
	}

	p.pd = backend.AllocPD()

	domain, err := registry.Create(memdomain.DeviceTypeRDMA,
		memdomain.NewRDMADomainContext(p.pd), memdomain.RDMADeviceID)
	if err != nil {
		return nil, fmt.Errorf("register rdma domain: %w", err)
	}
	domain.SetTranslation(p.translate)
	domain.SetFetch(p.fetch)
	p.domain = domain

	return p, nil
}

// Domain returns the registered memory domain.
func (p *Provider) Domain() *memdomain.Domain {
	return p.domain
}

// Close unregisters the domain. Outstanding fetches must have completed.
func (p *Provider) Close() {
	p.registry.Destroy(p.domain)
}

// translate registers [addr, addr+length) as a memory region on the
// destination queue pair's protection domain and returns the access keys that
// make the range addressable from that queue pair. The bytes do not move.
func (p *Provider) translate(ctx context.Context, _ *memdomain.Domain, _ any,
	dstDomain *memdomain.Domain, dstDomainCtx *memdomain.TranslationContext,
	addr, length uint64) (*memdomain.TranslationResult, error) {

	if dstDomain.DeviceType() != memdomain.DeviceTypeRDMA {
		return nil, fmt.Errorf("rdma translate: destination device type %s: %w",
			dstDomain.DeviceType(), sentinel.ErrNotSupported)
	}
	if dstDomainCtx == nil || dstDomainCtx.RDMA == nil {
		return nil, fmt.Errorf("rdma translate: missing queue pair context: %w", sentinel.ErrInvalidArgument)
	}
	qp, ok := dstDomainCtx.RDMA.QueuePair.(QP)
	if !ok {
		return nil, fmt.Errorf("rdma translate: foreign queue pair handle: %w", sentinel.ErrInvalidArgument)
	}

	pd, err := p.backend.QueryPD(qp)
	if err != nil {
		return nil, err
	}
	_, lkey, rkey, err := p.backend.RegisterMR(pd, addr, length)
	if err != nil {
		return nil, err
	}

	if p.logger != nil {
		p.logger.DebugContext(ctx, "translated range for queue pair",
			"addr", addr, "length", length, "lkey", lkey, "rkey", rkey,
		)
	}

	return &memdomain.TranslationResult{
		Size:      memdomain.TranslationResultSize,
		Addr:      addr,
		Len:       length,
		DstDomain: dstDomain,
		RDMA:      &memdomain.RDMAKeys{LKey: lkey, RKey: rkey},
	}, nil
}

// fetch starts a simulated RDMA read of the source descriptors into the
// destination buffers. Capacity is validated before start; an unregistered
// remote range is only discovered at completion, like a real remote access
// error would be. The notifier fires exactly once on the read goroutine and
// never when this function returns an error.
func (p *Provider) fetch(ctx context.Context, _ *memdomain.Domain, _ any,
	src []memdomain.Descriptor, dst [][]byte, done memdomain.FetchCompletion) error {

	var capacity uint64
	for _, buf := range dst {
		capacity += uint64(len(buf))
	}
	total := memdomain.TotalLen(src)
	if capacity < total {
		return fmt.Errorf("rdma fetch: destination capacity %d below source length %d: %w",
			capacity, total, sentinel.ErrInvalidArgument)
	}

	go func() {
		bufIdx, bufOff := 0, 0
		for _, desc := range src {
			data, err := p.backend.ReadRemote(desc.Addr, desc.Len)
			if err != nil {
				if p.logger != nil {
					p.logger.WarnContext(ctx, "rdma read failed", "addr", desc.Addr, "error", err.Error())
				}
				if done != nil {
					done(dst, err)
				}
				return
			}

			for len(data) > 0 {
				n := copy(dst[bufIdx][bufOff:], data)
				data = data[n:]
				bufOff += n
				if bufOff == len(dst[bufIdx]) {
					bufIdx++
					bufOff = 0
				}
			}
		}
		if done != nil {
			done(dst, nil)
		}
	}()

	return nil
}
