package heap

import "encoding/binary"

// guard records are 8 little-endian 32-bit words packed into the
// 32-byte wire layout:
//
//	word 0: magic
//	word 1: requestedSize
//	word 2: startPage (low 16) | pageCount (high 16)
//	word 3: zoneIndex (low 8) | reserved, zeroed
//	word 4: sequenceNum
//	word 5: reserved, zeroed
//	word 6: reserved, zeroed
//	word 7: checksum (XOR of words 0..6)
//
// Header and footer share this layout; only the magic constant differs.
// Fields are read and written through explicit byte offsets rather than
// an overlaid struct so the in-memory representation matches this wire
// layout bit-for-bit regardless of host struct-padding rules.
const (
	guardOffMagic         = 0
	guardOffRequestedSize = 4
	guardOffStartPage     = 8
	guardOffPageCount     = 10
	guardOffZoneIndex     = 12
	guardOffSequenceNum   = 16
	guardOffChecksum      = 28
	guardWords            = 8
)

type guardFields struct {
	Magic         uint32
	RequestedSize uint32
	StartPage     uint16
	PageCount     uint16
	ZoneIndex     uint8
	SequenceNum   uint32
	Checksum      uint32
}

// computeChecksum XORs the first 7 32-bit words of a 32-byte guard
// record, excluding the trailing checksum word.
func computeChecksum(rec []byte) uint32 {
	var sum uint32
	for w := 0; w < guardWords-1; w++ {
		sum ^= binary.LittleEndian.Uint32(rec[w*4 : w*4+4])
	}
	return sum
}

// writeGuard writes a header or footer record (selected by magic) into
// rec[0:32].
func writeGuard(rec []byte, magic uint32, reqSize uint32, startPage, pageCount uint16, zoneIndex uint8, seq uint32) {
	for i := range rec[:headerWireSize] {
		rec[i] = 0
	}
	binary.LittleEndian.PutUint32(rec[guardOffMagic:], magic)
	binary.LittleEndian.PutUint32(rec[guardOffRequestedSize:], reqSize)
	binary.LittleEndian.PutUint16(rec[guardOffStartPage:], startPage)
	binary.LittleEndian.PutUint16(rec[guardOffPageCount:], pageCount)
	rec[guardOffZoneIndex] = zoneIndex
	binary.LittleEndian.PutUint32(rec[guardOffSequenceNum:], seq)
	binary.LittleEndian.PutUint32(rec[guardOffChecksum:], computeChecksum(rec))
}

func readGuard(rec []byte) guardFields {
	return guardFields{
		Magic:         binary.LittleEndian.Uint32(rec[guardOffMagic:]),
		RequestedSize: binary.LittleEndian.Uint32(rec[guardOffRequestedSize:]),
		StartPage:     binary.LittleEndian.Uint16(rec[guardOffStartPage:]),
		PageCount:     binary.LittleEndian.Uint16(rec[guardOffPageCount:]),
		ZoneIndex:     rec[guardOffZoneIndex],
		SequenceNum:   binary.LittleEndian.Uint32(rec[guardOffSequenceNum:]),
		Checksum:      binary.LittleEndian.Uint32(rec[guardOffChecksum:]),
	}
}

// validateGuard reports whether rec[0:32] is a well-formed guard record
// with the given expected magic: the magic must match and the stored
// checksum must equal the recomputed one.
func validateGuard(rec []byte, expectedMagic uint32) bool {
	f := readGuard(rec)
	if f.Magic != expectedMagic {
		return false
	}
	return f.Checksum == computeChecksum(rec)
}

// validatePair reports whether a header and footer describe the same
// block: bit-exact equality of the five fields both records carry.
func validatePair(header, footer []byte) bool {
	h := readGuard(header)
	f := readGuard(footer)
	return h.RequestedSize == f.RequestedSize &&
		h.StartPage == f.StartPage &&
		h.PageCount == f.PageCount &&
		h.ZoneIndex == f.ZoneIndex &&
		h.SequenceNum == f.SequenceNum
}

// userOffset, footerOffset, paddingOffset and paddingSize implement the
// address arithmetic defined entirely in terms of requestedSize and the
// configured header/footer sizes.

func (c Config) userOffset(headerOff int) int {
	return headerOff + int(c.HeaderSize)
}

func (c Config) footerOffset(headerOff int, reqSize uint32) int {
	return headerOff + int(c.HeaderSize) + int(reqSize)
}

func (c Config) paddingOffset(headerOff int, reqSize uint32) int {
	return c.footerOffset(headerOff, reqSize) + int(c.FooterSize)
}

func (c Config) paddingSize(pageCount uint16, reqSize uint32) int {
	total := int(pageCount) * int(c.PageSize)
	return total - int(c.HeaderSize) - int(reqSize) - int(c.FooterSize)
}

func fillBytes(buf []byte, off, n int, pattern byte) {
	for i := off; i < off+n; i++ {
		buf[i] = pattern
	}
}

func validateBytes(buf []byte, off, n int, pattern byte) bool {
	for i := off; i < off+n; i++ {
		if buf[i] != pattern {
			return false
		}
	}
	return true
}
