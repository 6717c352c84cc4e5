package heap

import (
	"unsafe"

	"pageheap/mpu"
)

// Zone is a page-based allocator over a single, contiguous backing
// region. It performs no locking of its own — callers (typically a
// Router) must serialise every public method themselves. A Zone is
// created once via NewZone and is reset only by re-creating it; it is
// never partially torn down.
type Zone struct {
	cfg         Config
	data        []byte
	totalPages  int
	zoneIndex   uint8
	initialized bool

	bitmapInUse     PageBitmap
	bitmapAllocated PageBitmap
	quarantine      QuarantineTable

	sequenceCounter uint32

	freePages        int
	minEverFreePages int
	successfulAllocs uint64
	successfulFrees  uint64

	mpu mpu.Guard
}

// NewZone carves a Zone out of the given backing region. guard may be
// nil, in which case the zone behaves as if MPU protection is
// unavailable regardless of cfg.EnableMPUProtection.
func NewZone(cfg Config, data []byte, zoneIndex uint8, guard mpu.Guard) (*Zone, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(data) < int(cfg.PageSize) {
		return nil, errConfigInvalid("backing region must be at least one page")
	}

	totalPages := len(data) / int(cfg.PageSize)
	if totalPages > int(cfg.MaxPagesPerZone) {
		return nil, errConfigInvalid("backing region exceeds MaxPagesPerZone")
	}
	if guard == nil {
		guard = mpu.Noop{}
	}

	z := &Zone{
		cfg:        cfg,
		data:       data,
		totalPages: totalPages,
		zoneIndex:  zoneIndex,
		mpu:        guard,
	}
	z.bitmapInUse.init(totalPages)
	z.bitmapAllocated.init(totalPages)
	z.quarantine.init(int(cfg.QuarantineCapacity))
	z.freePages = totalPages
	z.minEverFreePages = totalPages
	z.initialized = true

	return z, nil
}

func (z *Zone) IsInitialized() bool { return z.initialized }

// resetState clears every bitmap and quarantine entry, unprotecting any
// outstanding MPU region, and restores freePages to totalPages. Stats
// counters (successfulAllocs/Frees, minEverFreePages) are left alone:
// they are cumulative history, not live state.
func (z *Zone) resetState() {
	for i := 0; i < z.quarantine.capacity(); i++ {
		e := z.quarantine.entryAt(i)
		if e.Active && e.MPURegion >= 0 {
			z.mpu.Unprotect(e.MPURegion)
		}
	}
	z.bitmapInUse.init(z.totalPages)
	z.bitmapAllocated.init(z.totalPages)
	z.quarantine.init(int(z.cfg.QuarantineCapacity))
	z.freePages = z.totalPages
}

func (z *Zone) pageAddress(pageIdx int) int { return pageIdx * int(z.cfg.PageSize) }

func pagesNeeded(cfg Config, reqSize uint32) int {
	need := uint64(cfg.HeaderSize) + uint64(reqSize) + uint64(cfg.FooterSize)
	pageSize := uint64(cfg.PageSize)
	return int((need + pageSize - 1) / pageSize)
}

func (z *Zone) ptrToOffset(ptr unsafe.Pointer) (int, bool) {
	if ptr == nil || len(z.data) == 0 {
		return 0, false
	}
	base := uintptr(unsafe.Pointer(&z.data[0]))
	p := uintptr(ptr)
	if p < base {
		return 0, false
	}
	off := int(p - base)
	if off >= len(z.data) {
		return 0, false
	}
	return off, true
}

func (z *Zone) offsetPtr(off int) unsafe.Pointer {
	return unsafe.Pointer(&z.data[off])
}

func (z *Zone) baseAddr() uintptr {
	return uintptr(unsafe.Pointer(&z.data[0]))
}

// Allocate serves a request of reqSize bytes as the smallest run of
// whole pages that can hold header + payload + footer, first-fit over
// the free-page bitmap.
func (z *Zone) Allocate(reqSize uint32) (unsafe.Pointer, error) {
	if !z.initialized {
		return nil, ErrNotInitialized
	}
	if reqSize == 0 {
		return nil, ErrZeroSize
	}

	k := pagesNeeded(z.cfg, reqSize)
	if k > z.freePages {
		return nil, ErrOutOfPages
	}

	z.runPreOpChecks()

	s := z.bitmapInUse.findFreeRun(k)
	if s == -1 {
		return nil, ErrOutOfPages
	}

	seq := z.sequenceCounter
	z.sequenceCounter++

	z.bitmapInUse.setRange(s, k)
	z.bitmapAllocated.setRange(s, k)

	headerOff := z.pageAddress(s)
	writeGuard(z.data[headerOff:headerOff+headerWireSize], z.cfg.HeaderMagic, reqSize, uint16(s), uint16(k), z.zoneIndex, seq)

	footerOff := z.cfg.footerOffset(headerOff, reqSize)
	writeGuard(z.data[footerOff:footerOff+headerWireSize], z.cfg.FooterMagic, reqSize, uint16(s), uint16(k), z.zoneIndex, seq)

	if padSize := z.cfg.paddingSize(uint16(k), reqSize); padSize > 0 {
		fillBytes(z.data, z.cfg.paddingOffset(headerOff, reqSize), padSize, z.cfg.PadByte)
	}

	z.freePages -= k
	if z.freePages < z.minEverFreePages {
		z.minEverFreePages = z.freePages
	}
	z.successfulAllocs++

	return z.offsetPtr(z.cfg.userOffset(headerOff)), nil
}

// Calloc allocates room for num elements of elemSize bytes each and
// zeroes the resulting payload. It fails with ErrCallocOverflow rather
// than silently wrapping when num*elemSize would not fit in a uint32.
func (z *Zone) Calloc(num, elemSize uint32) (unsafe.Pointer, error) {
	if num == 0 || elemSize == 0 {
		return nil, ErrZeroSize
	}
	total := uint64(num) * uint64(elemSize)
	if total > 0xFFFFFFFF {
		return nil, ErrCallocOverflow
	}

	ptr, err := z.Allocate(uint32(total))
	if err != nil {
		return nil, err
	}
	off, _ := z.ptrToOffset(ptr)
	fillBytes(z.data, off, int(total), 0)
	return ptr, nil
}

// Deallocate validates the block at ptr and migrates it into
// quarantine. A nil ptr is a no-op. Any guard-record corruption or
// ownership violation panics with a *CorruptionError rather than
// returning an error, matching the fatal-assertion policy the original
// heap-port contract requires for detected corruption.
func (z *Zone) Deallocate(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	if !z.initialized {
		panicContract("deallocate: zone not initialized")
	}

	off, ok := z.ptrToOffset(ptr)
	if !ok {
		panicContract("deallocate: pointer not owned by this zone")
	}

	headerOff := off - int(z.cfg.HeaderSize)
	if headerOff < 0 || headerOff+headerWireSize > len(z.data) {
		panicContract("deallocate: pointer out of range")
	}

	header := z.data[headerOff : headerOff+headerWireSize]
	if !validateGuard(header, z.cfg.HeaderMagic) {
		panicCorrupt("header", "magic/checksum", headerOff, uint64(z.cfg.HeaderMagic), uint64(readGuard(header).Magic))
	}

	hf := readGuard(header)
	footerOff := z.cfg.footerOffset(headerOff, hf.RequestedSize)
	if footerOff < 0 || footerOff+headerWireSize > len(z.data) {
		panicContract("deallocate: footer out of range")
	}
	footer := z.data[footerOff : footerOff+headerWireSize]
	if !validateGuard(footer, z.cfg.FooterMagic) {
		panicCorrupt("footer", "magic/checksum", footerOff, uint64(z.cfg.FooterMagic), uint64(readGuard(footer).Magic))
	}
	if !validatePair(header, footer) {
		panicCorrupt("pair", "header/footer identity", headerOff, 0, 0)
	}
	if hf.ZoneIndex != z.zoneIndex {
		panicContract("deallocate: zone index mismatch")
	}
	if int(hf.StartPage)+int(hf.PageCount) > z.totalPages {
		panicContract("deallocate: block exceeds zone bounds")
	}

	z.runPreOpChecks()

	_, evicted, didEvict := z.quarantine.add(hf.StartPage, hf.PageCount, hf.RequestedSize, hf.ZoneIndex)
	if didEvict {
		z.recycle(evicted)
	}

	if z.cfg.FillOnFree {
		fillBytes(z.data, off, int(hf.RequestedSize), z.cfg.QuarantineFillByte)
	}

	z.bitmapAllocated.clearRange(int(hf.StartPage), int(hf.PageCount))

	if z.cfg.EnableMPUProtection {
		z.updateMPUProtection(int(hf.StartPage), int(hf.PageCount))
	}

	z.successfulFrees++
}

func (z *Zone) runPreOpChecks() {
	if z.cfg.QuarantineCheckLevel > 0 && !z.verifyQuarantineLocked() {
		panicCorrupt("quarantine", "pre-operation scan", -1, 0, 0)
	}
	if z.cfg.CheckAllAllocated && !z.verifyAllocatedLocked() {
		panicCorrupt("header", "pre-operation allocated scan", -1, 0, 0)
	}
}

// RunChecks performs every integrity scan the configuration enables and
// reports whether the zone is internally consistent, without panicking.
func (z *Zone) RunChecks() bool {
	ok := true
	if z.cfg.QuarantineCheckLevel > 0 {
		ok = ok && z.verifyQuarantineLocked()
	}
	if z.cfg.CheckAllAllocated {
		ok = ok && z.verifyAllocatedLocked()
	}
	return ok
}

// VerifyQuarantine re-validates every active quarantine entry's guard
// records (and, depending on the configured check level, its painted
// payload and padding) without mutating state.
func (z *Zone) VerifyQuarantine() bool { return z.verifyQuarantineLocked() }

func (z *Zone) verifyQuarantineLocked() bool {
	for i := 0; i < z.quarantine.capacity(); i++ {
		e := z.quarantine.entryAt(i)
		if !e.Active {
			continue
		}

		headerOff := z.pageAddress(int(e.StartPage))
		if headerOff+headerWireSize > len(z.data) {
			return false
		}
		header := z.data[headerOff : headerOff+headerWireSize]
		if !validateGuard(header, z.cfg.HeaderMagic) {
			return false
		}

		footerOff := z.cfg.footerOffset(headerOff, e.RequestedSize)
		if footerOff+headerWireSize > len(z.data) {
			return false
		}
		footer := z.data[footerOff : footerOff+headerWireSize]
		if !validateGuard(footer, z.cfg.FooterMagic) {
			return false
		}
		if !validatePair(header, footer) {
			return false
		}

		if z.cfg.QuarantineCheckLevel >= 2 {
			payloadOff := z.cfg.userOffset(headerOff)
			if !validateBytes(z.data, payloadOff, int(e.RequestedSize), z.cfg.QuarantineFillByte) {
				return false
			}
		}
		if z.cfg.QuarantineCheckLevel >= 3 {
			padOff := z.cfg.paddingOffset(headerOff, e.RequestedSize)
			padSize := z.cfg.paddingSize(e.PageCount, e.RequestedSize)
			if padSize > 0 && !validateBytes(z.data, padOff, padSize, z.cfg.PadByte) {
				return false
			}
		}
	}
	return true
}

// VerifyAllocated walks the zone page by page, validating every live
// block it finds, without mutating state.
func (z *Zone) VerifyAllocated() bool { return z.verifyAllocatedLocked() }

func (z *Zone) verifyAllocatedLocked() bool {
	for i := 0; i < z.totalPages; {
		if !z.bitmapAllocated.test(i) {
			i++
			continue
		}

		headerOff := z.pageAddress(i)
		if headerOff+headerWireSize > len(z.data) {
			i++
			continue
		}
		header := z.data[headerOff : headerOff+headerWireSize]
		hf := readGuard(header)
		if !validateGuard(header, z.cfg.HeaderMagic) || int(hf.StartPage) != i {
			// Mid-block page, or a bad header on a page that isn't
			// actually a block start; neither is itself a corruption
			// signal here.
			i++
			continue
		}

		footerOff := z.cfg.footerOffset(headerOff, hf.RequestedSize)
		if footerOff+headerWireSize > len(z.data) {
			return false
		}
		footer := z.data[footerOff : footerOff+headerWireSize]
		if !validateGuard(footer, z.cfg.FooterMagic) {
			return false
		}
		if !validatePair(header, footer) {
			return false
		}

		i += int(hf.PageCount)
	}
	return true
}

// OwnsPointer reports whether ptr falls within this zone's addressable
// user range: [base+HeaderSize, base+totalPages*PageSize).
func (z *Zone) OwnsPointer(ptr unsafe.Pointer) bool {
	off, ok := z.ptrToOffset(ptr)
	if !ok {
		return false
	}
	lo := int(z.cfg.HeaderSize)
	hi := z.totalPages * int(z.cfg.PageSize)
	return off >= lo && off < hi
}

func (z *Zone) recycle(e quarantineEntry) {
	if e.MPURegion >= 0 {
		z.mpu.Unprotect(e.MPURegion)
	}
	if z.cfg.ClearOnEvict {
		off := z.pageAddress(int(e.StartPage))
		fillBytes(z.data, off, int(e.PageCount)*int(z.cfg.PageSize), 0)
	}
	z.bitmapInUse.clearRange(int(e.StartPage), int(e.PageCount))
	z.freePages += int(e.PageCount)
}

// updateMPUProtection implements the coalescing algorithm: extend the
// just-freed block's page range in both directions while the
// neighbouring page is not in bitmapAllocated (free or itself
// quarantined), find the largest power-of-two window that fits inside
// the extended range, and reprogram the MPU to cover it.
func (z *Zone) updateMPUProtection(startPage, pageCount int) {
	if !z.mpu.Available() {
		return
	}

	regionStart := startPage
	regionEnd := startPage + pageCount
	for regionStart > 0 && !z.bitmapAllocated.test(regionStart-1) {
		regionStart--
	}
	for regionEnd < z.totalPages && !z.bitmapAllocated.test(regionEnd) {
		regionEnd++
	}

	regionBytes := uintptr(regionEnd-regionStart) * uintptr(z.cfg.PageSize)
	protectSize := mpu.FloorPow2(regionBytes)

	lo := uintptr(z.pageAddress(regionStart))
	hi := uintptr(z.pageAddress(regionEnd))
	// Resolved design choice: re-anchor at the just-freed block's own
	// startPage on every halving, not at the extended regionStart.
	anchor := uintptr(z.pageAddress(startPage))

	var protectAddr uintptr
	found := false
	for protectSize > uintptr(z.cfg.PageSize) {
		candidate := mpu.AlignDown(anchor, protectSize)
		if candidate >= lo && candidate+protectSize <= hi {
			protectAddr = candidate
			found = true
			break
		}
		protectSize >>= 1
	}
	if !found {
		return
	}

	base := z.baseAddr()
	winLoPage := int((protectAddr) / uintptr(z.cfg.PageSize))
	winHiPage := int((protectAddr + protectSize) / uintptr(z.cfg.PageSize))

	for i := 0; i < z.quarantine.capacity(); i++ {
		e := z.quarantine.entryAt(i)
		if !e.Active || e.MPURegion < 0 {
			continue
		}
		if int(e.StartPage) >= winLoPage && int(e.StartPage)+int(e.PageCount) <= winHiPage {
			z.mpu.Unprotect(e.MPURegion)
			z.quarantine.setMPURegion(i, -1)
		}
	}

	region, ok := z.mpu.Protect(base+protectAddr, protectSize)
	if !ok {
		return
	}

	for i := 0; i < z.quarantine.capacity(); i++ {
		e := z.quarantine.entryAt(i)
		if !e.Active {
			continue
		}
		if int(e.StartPage) >= winLoPage && int(e.StartPage)+int(e.PageCount) <= winHiPage {
			z.quarantine.setMPURegion(i, region)
		}
	}
}

// FreeBytes returns the number of bytes currently available for
// allocation.
func (z *Zone) FreeBytes() int { return z.freePages * int(z.cfg.PageSize) }

// MinEverFreeBytes returns the watermark-low free byte count observed
// since the zone was created.
func (z *Zone) MinEverFreeBytes() int { return z.minEverFreePages * int(z.cfg.PageSize) }

// TotalBytes returns the zone's total capacity in bytes.
func (z *Zone) TotalBytes() int { return z.totalPages * int(z.cfg.PageSize) }

// UsedBytes returns TotalBytes() - FreeBytes().
func (z *Zone) UsedBytes() int { return z.TotalBytes() - z.FreeBytes() }
