package memdomain

import (
	"container/list"
	"fmt"
	"log/slog"
	"sync"

	"memdomain/internal/memdomain/metrics"
	"memdomain/pkg/platform/sentinel"
)

// Registry is an ordered collection of memory domains. It is constructed
// explicitly and injected wherever a shared instance is needed; tests create
// their own. Create, Destroy and the Get* scans serialize on a single coarse
// lock that is never held across a provider invocation.
//
// Scans give no snapshot isolation: a GetFirst/GetNext walk interleaved with
// concurrent Create/Destroy of other domains may observe insertions and
// removals mid-scan.
type Registry struct {
	mu      sync.Mutex
	domains *list.List

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// RegistryOption configures a Registry.
type RegistryOption func(r *Registry)

// WithRegistryLogger attaches a logger for registration lifecycle events.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithRegistryMetrics attaches Prometheus metrics.
func WithRegistryMetrics(m *metrics.Metrics) RegistryOption {
	return func(r *Registry) {
		r.metrics = m
	}
}

// NewRegistry constructs an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{domains: list.New()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create registers a new memory domain and appends it to the iteration order.
// The context reference is stored as given: the caller keeps ownership and the
// registry never copies or releases it. Both capabilities start unset.
func (r *Registry) Create(deviceType DeviceType, domainCtx *DomainContext, id string) (*Domain, error) {
	if id == "" {
		return nil, fmt.Errorf("create memory domain: empty id: %w", sentinel.ErrInvalidArgument)
	}

	d := &Domain{
		deviceType: deviceType,
		id:         id,
		domainCtx:  domainCtx,
		registry:   r,
	}

	r.mu.Lock()
	d.elem = r.domains.PushBack(d)
	count := r.domains.Len()
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Info("memory domain registered",
			"device_id", id,
			"device_type", deviceType.String(),
		)
	}
	if r.metrics != nil {
		r.metrics.SetDomainsRegistered(count)
	}

	return d, nil
}

// Destroy unregisters the domain. It is removed from the collection before any
// of its storage is dropped; positions of other domains are unaffected. The
// caller-owned context is not touched. Destroying a domain twice, or while
// translate/fetch calls referencing it are outstanding, is undefined.
func (r *Registry) Destroy(d *Domain) {
	if d == nil || d.elem == nil {
		return
	}

	r.mu.Lock()
	r.domains.Remove(d.elem)
	count := r.domains.Len()
	r.mu.Unlock()

	d.elem = nil
	d.registry = nil

	if r.logger != nil {
		r.logger.Info("memory domain destroyed", "device_id", d.id)
	}
	if r.metrics != nil {
		r.metrics.SetDomainsRegistered(count)
	}
}

// GetFirst returns the first registered domain in insertion order, or nil if
// the registry is empty. A non-empty idFilter restricts the scan to domains
// whose device id equals it.
func (r *Registry) GetFirst(idFilter string) *Domain {
	r.mu.Lock()
	defer r.mu.Unlock()
	return scan(r.domains.Front(), idFilter)
}

// GetNext resumes the forward scan strictly after prev, applying the same
// filter. prev must currently be registered; passing a destroyed domain yields
// nil rather than a defined position.
func (r *Registry) GetNext(prev *Domain, idFilter string) *Domain {
	if prev == nil || prev.elem == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return scan(prev.elem.Next(), idFilter)
}

// scan walks forward from elem returning the first domain matching the filter.
// Callers hold the registry lock.
func scan(elem *list.Element, idFilter string) *Domain {
	for ; elem != nil; elem = elem.Next() {
		d := elem.Value.(*Domain)
		if idFilter == "" || d.id == idFilter {
			return d
		}
	}
	return nil
}
