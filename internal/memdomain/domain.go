package memdomain

import "container/list"

// Domain is one registered memory domain. Identity fields (device type, id,
// context) are immutable after creation; the translate and fetch capabilities
// may be replaced at any time via SetTranslation/SetFetch, though not
// concurrently with an outstanding invocation of the same capability — callers
// that mutate a live domain must quiesce it first.
type Domain struct {
	deviceType DeviceType
	id         string
	domainCtx  *DomainContext

	translate TranslateFn
	fetch     FetchFn

	// registry linkage; insertion order defines iteration order.
	elem     *list.Element
	registry *Registry
}

// DeviceID returns the identifier of the DMA device that can access this
// domain. Not guaranteed unique: several instances of the same provider kind
// may register under the same id.
func (d *Domain) DeviceID() string {
	return d.id
}

// DeviceType returns the type of the DMA device that can access this domain.
func (d *Domain) DeviceType() DeviceType {
	return d.deviceType
}

// Context returns the caller-owned context supplied at creation, or nil.
func (d *Domain) Context() *DomainContext {
	return d.domainCtx
}

// HasTranslation reports whether a translate capability is attached.
func (d *Domain) HasTranslation() bool {
	return d.translate != nil
}

// HasFetch reports whether a fetch capability is attached.
func (d *Domain) HasFetch() bool {
	return d.fetch != nil
}

// SetTranslation overwrites the domain's translate capability. A nil fn
// removes it, after which every Translate call against this domain fails with
// ErrNotSupported.
func (d *Domain) SetTranslation(fn TranslateFn) {
	d.translate = fn
}

// SetFetch overwrites the domain's fetch capability. A nil fn removes it,
// after which every Fetch call against this domain fails with ErrNotSupported
// and no completion fires.
func (d *Domain) SetFetch(fn FetchFn) {
	d.fetch = fn
}
