package heap

// Config carries every tunable of the allocator that the original
// embedded implementation fixed at compile time. A Zone or Router is
// constructed against one Config value and keeps it for its lifetime.
type Config struct {
	// PageSize is the fixed allocation granule, in bytes.
	PageSize uint32

	// HeaderSize and FooterSize must both equal the wire size of a guard
	// record (32 bytes). They are validated against headerWireSize at
	// construction time rather than hardcoded, so a future wire format
	// revision only has to change headerWireSize.
	HeaderSize uint32
	FooterSize uint32

	// MaxPagesPerZone bounds the size of a single zone's bitmaps.
	MaxPagesPerZone uint32

	// QuarantineCapacity is the fixed slot count of a zone's quarantine
	// table.
	QuarantineCapacity uint32

	// HeaderMagic and FooterMagic distinguish the two guard records from
	// each other and from arbitrary memory.
	HeaderMagic uint32
	FooterMagic uint32

	// PadByte fills unused space at the tail of a block's last page.
	PadByte byte
	// QuarantineFillByte overwrites a block's payload the moment it is
	// freed, when FillOnFree is set.
	QuarantineFillByte byte

	// FillOnFree paints QuarantineFillByte over the payload on deallocate.
	FillOnFree bool
	// ClearOnEvict zeroes a quarantine entry's pages when it is evicted
	// and recycled back to the free pool.
	ClearOnEvict bool
	// QuarantineCheckLevel gates how much of an active quarantine entry
	// is re-validated on every heap operation: 0 disables the scan
	// entirely, 1 checks header/footer/pair, 2 additionally checks the
	// painted payload, 3 additionally checks padding.
	QuarantineCheckLevel int
	// CheckAllAllocated additionally runs verifyAllocated before every
	// allocate/deallocate, not only on explicit request.
	CheckAllAllocated bool

	// EnableMPUProtection turns on MPU coalescing around quarantine
	// entries on deallocate.
	EnableMPUProtection bool
	// MPUFirstRegion and MPURegionCount describe the pool of hardware
	// regions the MPU guard may hand out; they are carried here for
	// parity with the original configuration surface even though this
	// module's mpu.Guard implementations manage their own region
	// bookkeeping internally.
	MPUFirstRegion int
	MPURegionCount int
}

// headerWireSize is the number of bytes a header or footer occupies on
// the wire: magic(4) + requestedSize(4) + startPage(2) + pageCount(2) +
// zoneIndex(1) + reserved(3) + sequenceNum(4) + reserved(4) + reserved(4)
// + checksum(4) = 32.
const headerWireSize = 32

// DefaultConfig mirrors the reference implementation's AllocConf.h
// defaults: a 1 KiB page, two zones' worth of headroom, a small
// quarantine, conservative integrity checking, MPU protection disabled
// (most hosts have none).
var DefaultConfig = Config{
	PageSize:              1024,
	HeaderSize:            headerWireSize,
	FooterSize:            headerWireSize,
	MaxPagesPerZone:       10240,
	QuarantineCapacity:    32,
	HeaderMagic:           0x48454144, // "HEAD"
	FooterMagic:           0x464F4F54, // "FOOT"
	PadByte:               0xFE,
	QuarantineFillByte:    0xCD,
	FillOnFree:            true,
	ClearOnEvict:          true,
	QuarantineCheckLevel:  1,
	CheckAllAllocated:     false,
	EnableMPUProtection:   false,
	MPUFirstRegion:        4,
	MPURegionCount:        2,
}

// StrictConfig raises the integrity-scan level to its maximum and turns
// on the full-zone allocated-block walk on every operation, trading
// throughput for the earliest possible corruption detection.
var StrictConfig = Config{
	PageSize:              1024,
	HeaderSize:            headerWireSize,
	FooterSize:            headerWireSize,
	MaxPagesPerZone:       10240,
	QuarantineCapacity:    32,
	HeaderMagic:           0x48454144,
	FooterMagic:           0x464F4F54,
	PadByte:               0xFE,
	QuarantineFillByte:    0xCD,
	FillOnFree:            true,
	ClearOnEvict:          true,
	QuarantineCheckLevel:  3,
	CheckAllAllocated:     true,
	EnableMPUProtection:   true,
	MPUFirstRegion:        4,
	MPURegionCount:        2,
}

// FastConfig disables every optional integrity scan, keeping only the
// guard-record validation that deallocate cannot safely skip.
var FastConfig = Config{
	PageSize:              1024,
	HeaderSize:            headerWireSize,
	FooterSize:            headerWireSize,
	MaxPagesPerZone:       10240,
	QuarantineCapacity:    32,
	HeaderMagic:           0x48454144,
	FooterMagic:           0x464F4F54,
	PadByte:               0xFE,
	QuarantineFillByte:    0xCD,
	FillOnFree:            false,
	ClearOnEvict:          false,
	QuarantineCheckLevel:  0,
	CheckAllAllocated:     false,
	EnableMPUProtection:   false,
	MPUFirstRegion:        4,
	MPURegionCount:        2,
}

func (c Config) validate() error {
	if c.PageSize == 0 {
		return errConfigInvalid("PageSize must be non-zero")
	}
	if c.HeaderSize != headerWireSize || c.FooterSize != headerWireSize {
		return errConfigInvalid("HeaderSize and FooterSize must equal the 32-byte wire record size")
	}
	if uint64(c.HeaderSize)+uint64(c.FooterSize)+1 > uint64(c.PageSize) {
		return errConfigInvalid("PageSize must fit header + footer + at least one payload byte")
	}
	if c.QuarantineCapacity == 0 {
		return errConfigInvalid("QuarantineCapacity must be non-zero")
	}
	if c.QuarantineCheckLevel < 0 || c.QuarantineCheckLevel > 3 {
		return errConfigInvalid("QuarantineCheckLevel must be in [0,3]")
	}
	return nil
}
