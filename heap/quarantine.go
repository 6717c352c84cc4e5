package heap

// quarantineEntry mirrors a single freed-but-not-yet-recycled block.
type quarantineEntry struct {
	StartPage     uint16
	PageCount     uint16
	RequestedSize uint32
	ZoneIndex     uint8
	FreeSequence  uint32
	MPURegion     int // -1 when not MPU-protected
	Active        bool
}

// QuarantineTable is a fixed-capacity FIFO of recently-freed page runs.
// Eviction picks the active entry with the smallest freeSequence —
// strict arrival order, no priority or decay.
type QuarantineTable struct {
	entries      []quarantineEntry
	nextSequence uint32
	activeCount  int
}

func (q *QuarantineTable) init(capacity int) {
	q.entries = make([]quarantineEntry, capacity)
	for i := range q.entries {
		q.entries[i] = quarantineEntry{}
	}
	// Sequence 0 is reserved to mean "never used" so a zeroed slot never
	// looks like a legitimate, very-old entry.
	q.nextSequence = 1
	q.activeCount = 0
}

func (q *QuarantineTable) capacity() int { return len(q.entries) }
func (q *QuarantineTable) count() int    { return q.activeCount }
func (q *QuarantineTable) isEmpty() bool { return q.activeCount == 0 }
func (q *QuarantineTable) isFull() bool  { return q.activeCount == len(q.entries) }

func (q *QuarantineTable) entryAt(i int) quarantineEntry { return q.entries[i] }

func (q *QuarantineTable) findOldest() int {
	oldest := -1
	var oldestSeq uint32
	for i := range q.entries {
		if !q.entries[i].Active {
			continue
		}
		if oldest == -1 || q.entries[i].FreeSequence < oldestSeq {
			oldest = i
			oldestSeq = q.entries[i].FreeSequence
		}
	}
	return oldest
}

func (q *QuarantineTable) findFreeSlot() int {
	for i := range q.entries {
		if !q.entries[i].Active {
			return i
		}
	}
	return -1
}

// add inserts a new entry, evicting the oldest active entry first if the
// table is full. Returns the index of the newly active slot, the
// evicted entry (zero value if none), and whether an eviction occurred.
func (q *QuarantineTable) add(start, pageCount uint16, reqSize uint32, zoneIndex uint8) (int, quarantineEntry, bool) {
	var evicted quarantineEntry
	didEvict := false

	if q.isFull() {
		oldest := q.findOldest()
		evicted = q.entries[oldest]
		q.entries[oldest].Active = false
		q.activeCount--
		didEvict = true
	}

	slot := q.findFreeSlot()
	if slot == -1 {
		// Unreachable: isFull() was just checked/relieved above.
		panicContract("quarantine: no free slot after eviction")
	}

	q.entries[slot] = quarantineEntry{
		StartPage:     start,
		PageCount:     pageCount,
		RequestedSize: reqSize,
		ZoneIndex:     zoneIndex,
		FreeSequence:  q.nextSequence,
		MPURegion:     -1,
		Active:        true,
	}
	q.nextSequence++
	q.activeCount++

	return slot, evicted, didEvict
}

func (q *QuarantineTable) deactivate(idx int) {
	q.entries[idx].Active = false
	q.activeCount--
}

func (q *QuarantineTable) setMPURegion(idx, region int) {
	q.entries[idx].MPURegion = region
}
