// Package idgen produces monotonic 64-bit identifiers used as job IDs and
// trace IDs throughout the platform. Next serializes callers on a mutex;
// generation is not lock-free.
package idgen

import (
	"strconv"
	"sync"
	"time"
)

const (
	machineBits  = 10
	sequenceBits = 12

	maxMachineID = (1 << machineBits) - 1
	maxSequence  = (1 << sequenceBits) - 1

	machineShift = sequenceBits
	timeShift    = sequenceBits + machineBits
)

// Epoch is subtracted from wall-clock milliseconds before packing the
// timestamp component, keeping the values small for longer. Fixed so IDs
// generated by separate processes remain comparable.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Generator produces 64-bit IDs as
// (ms_since_epoch << 22) | (machine_id << 12) | sequence.
//
// The sequence increases monotonically within a millisecond; when it wraps
// (exhausts 12 bits) the generator spins to the next millisecond. On
// detected clock regression the generator spins until wall-clock time
// catches back up rather than emitting a non-monotonic ID.
type Generator struct {
	mu        sync.Mutex
	machineID int64
	lastMs    int64
	sequence  int64
	now       func() time.Time
}

// New constructs a Generator for the given machine ID, which must be in
// [0, 1023].
func New(machineID int) (*Generator, error) {
	if machineID < 0 || machineID > maxMachineID {
		return nil, ErrInvalidMachineID
	}
	return &Generator{
		machineID: int64(machineID),
		lastMs:    -1,
		now:       time.Now,
	}, nil
}

// Next returns the next monotonic ID.
func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.nowMs()
	if ms < g.lastMs {
		// Clock regression: spin until time catches up rather than ever
		// emitting an ID smaller than the last one issued.
		for ms < g.lastMs {
			time.Sleep(time.Millisecond)
			ms = g.nowMs()
		}
	}

	if ms == g.lastMs {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			// Sequence exhausted within this millisecond: spin to the next.
			for ms <= g.lastMs {
				time.Sleep(time.Millisecond / 4)
				ms = g.nowMs()
			}
		}
	} else {
		g.sequence = 0
	}

	g.lastMs = ms
	return (ms << timeShift) | (g.machineID << machineShift) | g.sequence
}

// NextString returns Next encoded in base 10, the form used as job_id and
// trace_id across the wire (§4.1: "Emits a string representation for
// cross-system use").
func (g *Generator) NextString() string {
	return strconv.FormatInt(g.Next(), 10)
}

func (g *Generator) nowMs() int64 {
	return g.now().Sub(Epoch).Milliseconds()
}
