// Package memdomain is a registry of memory domains: named, typed descriptions
// of an address space some DMA-capable device can act upon. Hardware providers
// publish domains and attach translate/fetch capabilities; I/O consumers
// discover domains and invoke those capabilities through the Engine without
// knowing provider internals.
package memdomain

import (
	"context"
	"unsafe"
)

// RDMADeviceID identifies the built-in RDMA-class DMA device. Providers
// registering the canonical RDMA domain use it, and consumers use it to
// filter discovery to RDMA-capable domains.
const RDMADeviceID = "RDMA_DMA_DEVICE"

// DeviceType tags the kind of DMA device that can access a memory domain.
type DeviceType int

const (
	// DeviceTypeRDMA devices perform DMA on memory domains using the standard
	// RDMA model (protection domain, remote key, address).
	DeviceTypeRDMA DeviceType = iota
	// DeviceTypeDMA devices perform DMA on memory domains using physical or
	// I/O virtual addresses.
	DeviceTypeDMA
)

func (t DeviceType) String() string {
	switch t {
	case DeviceTypeRDMA:
		return "rdma"
	case DeviceTypeDMA:
		return "dma"
	default:
		return "unknown"
	}
}

// Descriptor is one entry of a scattered byte range, expressed in the address
// space of the domain it belongs to.
type Descriptor struct {
	Addr uint64
	Len  uint64
}

// TotalLen sums the lengths of a descriptor list.
func TotalLen(descs []Descriptor) uint64 {
	var total uint64
	for _, d := range descs {
		total += d.Len
	}
	return total
}

// RDMAKeys is the RDMA payload of a translation result: access keys valid for
// the queue pair carried by the translation context the call was made with.
type RDMAKeys struct {
	LKey uint32
	RKey uint32
}

// RDMADomainContext is the RDMA variant of a domain context. The protection
// domain handle is opaque to this layer.
type RDMADomainContext struct {
	ProtectionDomain any
}

// DomainContext is the optional, caller-owned context supplied when a domain
// is created. The registry stores the reference and never copies or releases
// it. Size carries the struct size as declared by the producer so providers
// and consumers built against different revisions can detect added fields.
type DomainContext struct {
	Size int
	RDMA *RDMADomainContext
}

// NewRDMADomainContext builds a size-tagged domain context for an RDMA
// protection domain handle.
func NewRDMADomainContext(pd any) *DomainContext {
	return &DomainContext{
		Size: int(unsafe.Sizeof(DomainContext{})),
		RDMA: &RDMADomainContext{ProtectionDomain: pd},
	}
}

// RDMATranslationContext is the RDMA variant of a translation context. The
// queue pair handle is opaque to this layer.
type RDMATranslationContext struct {
	QueuePair any
}

// TranslationContext is per-call ancillary data for the destination domain of
// a translation. Caller-owned and call-scoped; size-tagged like DomainContext.
type TranslationContext struct {
	Size int
	RDMA *RDMATranslationContext
}

// NewRDMATranslationContext builds a size-tagged translation context for an
// RDMA queue pair handle.
func NewRDMATranslationContext(qp any) *TranslationContext {
	return &TranslationContext{
		Size: int(unsafe.Sizeof(TranslationContext{})),
		RDMA: &RDMATranslationContext{QueuePair: qp},
	}
}

// TranslationResult describes the same bytes in the destination domain's
// addressing scheme. The device-specific payload is a tagged variant keyed by
// the destination domain's device type: RDMA is only meaningful when
// DstDomain.DeviceType() is DeviceTypeRDMA.
type TranslationResult struct {
	// Size is the struct size as declared by the producing provider.
	Size int
	// Addr and Len locate the bytes in destination domain space.
	Addr uint64
	Len  uint64
	// DstDomain echoes the destination domain the result is valid against.
	DstDomain *Domain
	RDMA      *RDMAKeys
}

// TranslationResultSize is the struct size providers built from this revision
// declare in TranslationResult.Size.
const TranslationResultSize = int(unsafe.Sizeof(TranslationResult{}))

// FetchCompletion is the one-shot notifier for an asynchronous fetch. On nil
// err the destination buffers together hold all bytes described by the source
// descriptors; on non-nil err their contents are unspecified and must be
// discarded. Providers fire it exactly once per successfully started fetch and
// never for a failed start.
type FetchCompletion func(dst [][]byte, err error)

// TranslateFn is the translate capability a provider attaches to its domain.
// It re-describes the byte range [addr, addr+length) from srcDomain's
// addressing scheme into dstDomain's. No data moves. Implementations must be
// idempotent for identical inputs.
type TranslateFn func(ctx context.Context, srcDomain *Domain, srcDomainCtx any,
	dstDomain *Domain, dstDomainCtx *TranslationContext,
	addr, length uint64) (*TranslationResult, error)

// FetchFn is the fetch capability a provider attaches to its domain. It starts
// an asynchronous copy of the bytes described by src (in srcDomain space) into
// the caller-allocated dst buffers. A non-nil return means the copy never
// started and done must never be invoked for this call. A nil return means the
// copy is in flight and done fires exactly once with the terminal status,
// possibly from another goroutine. The dst list is aggregate capacity only;
// per-entry distribution of the copied bytes is provider-defined.
type FetchFn func(ctx context.Context, srcDomain *Domain, srcDomainCtx any,
	src []Descriptor, dst [][]byte, done FetchCompletion) error
