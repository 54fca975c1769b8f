// Package rdmasim publishes the canonical RDMA memory domain backed by a
// simulated verbs layer. The backend stands in for libibverbs: protection
// domains, queue pairs, memory registration yielding access keys, and remote
// reads against registered remote regions. It exists so the translate/fetch
// contracts can be exercised end to end without RDMA hardware.
package rdmasim

import (
	"fmt"
	"sync"

	"memdomain/pkg/platform/sentinel"
)

// Handle types for simulated verbs objects.
type PD uintptr
type QP uintptr
type MR uintptr

type registeredMR struct {
	pd   PD
	addr uint64
	len  uint64
	lkey uint32
	rkey uint32
}

type remoteRegion struct {
	addr uint64
	data []byte
}

// Backend is the simulated verbs layer. All handle tables sit behind one
// mutex; handles are process-unique and never reused.
type Backend struct {
	mu         sync.Mutex
	nextHandle uintptr
	pds        map[PD]struct{}
	qps        map[QP]PD
	mrs        map[MR]registeredMR
	remote     []remoteRegion
}

// NewBackend creates an empty simulated verbs backend.
func NewBackend() *Backend {
	return &Backend{
		pds: make(map[PD]struct{}),
		qps: make(map[QP]PD),
		mrs: make(map[MR]registeredMR),
	}
}

// AllocPD allocates a protection domain.
func (b *Backend) AllocPD() PD {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextHandle++
	pd := PD(b.nextHandle)
	b.pds[pd] = struct{}{}
	return pd
}

// CreateQP creates a queue pair on the given protection domain.
func (b *Backend) CreateQP(pd PD) (QP, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.pds[pd]; !ok {
		return 0, fmt.Errorf("create qp: unknown protection domain: %w", sentinel.ErrInvalidArgument)
	}

	b.nextHandle++
	qp := QP(b.nextHandle)
	b.qps[qp] = pd
	return qp, nil
}

// QueryPD returns the protection domain a queue pair was created on.
func (b *Backend) QueryPD(qp QP) (PD, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pd, ok := b.qps[qp]
	if !ok {
		return 0, fmt.Errorf("query pd: unknown queue pair: %w", sentinel.ErrInvalidArgument)
	}
	return pd, nil
}

// RegisterMR registers [addr, addr+length) under the protection domain and
// returns the memory region handle with its access keys. Registering the same
// range twice yields the same keys, which keeps translation idempotent.
func (b *Backend) RegisterMR(pd PD, addr, length uint64) (MR, uint32, uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.pds[pd]; !ok {
		return 0, 0, 0, fmt.Errorf("register mr: unknown protection domain: %w", sentinel.ErrInvalidArgument)
	}

	for mr, reg := range b.mrs {
		if reg.pd == pd && reg.addr == addr && reg.len == length {
			return mr, reg.lkey, reg.rkey, nil
		}
	}

	b.nextHandle++
	mr := MR(b.nextHandle)
	lkey := uint32(b.nextHandle)
	rkey := uint32(b.nextHandle) | 0x80000000
	b.mrs[mr] = registeredMR{pd: pd, addr: addr, len: length, lkey: lkey, rkey: rkey}
	return mr, lkey, rkey, nil
}

// DeregisterMR drops a memory region registration.
func (b *Backend) DeregisterMR(mr MR) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.mrs, mr)
}

// RegisterRemoteMemory publishes bytes reachable by simulated RDMA reads at
// the given remote address. The backend keeps its own copy.
func (b *Backend) RegisterRemoteMemory(addr uint64, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	owned := make([]byte, len(data))
	copy(owned, data)
	b.remote = append(b.remote, remoteRegion{addr: addr, data: owned})
}

// ReadRemote resolves [addr, addr+length) against the registered remote
// regions. The range must fall entirely within one region, as a real RDMA
// read must fall within one registered memory region.
func (b *Backend) ReadRemote(addr, length uint64) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, region := range b.remote {
		end := region.addr + uint64(len(region.data))
		if addr >= region.addr && addr+length <= end {
			offset := addr - region.addr
			return region.data[offset : offset+length], nil
		}
	}
	return nil, fmt.Errorf("remote read at 0x%x len %d: no registered region: %w",
		addr, length, sentinel.ErrInvalidArgument)
}
