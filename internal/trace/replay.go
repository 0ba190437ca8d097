package trace

import (
	"fmt"
	"unsafe"

	"github.com/orizon-lang/heapmalloc/internal/alloc"
	"github.com/orizon-lang/heapmalloc/internal/memlib"
)

// Stats summarizes one replay: how many operations ran, the peak aggregate
// payload bytes live at once, and the peak arena bytes the heap committed
// to hold them — the ratio of the two is utilization.
type Stats struct {
	Ops            int
	PeakPayload    uintptr
	PeakArenaBytes int
	Violations     []alloc.Violation
}

// Utilization is PeakPayload / PeakArenaBytes, or 0 if nothing was ever
// allocated.
func (s Stats) Utilization() float64 {
	if s.PeakArenaBytes == 0 {
		return 0
	}
	return float64(s.PeakPayload) / float64(s.PeakArenaBytes)
}

// Replay drives t against a fresh heap of the given arena capacity,
// running CheckHeap after every operation. It returns as soon as an
// operation cannot be serviced or an invariant violation is found.
func Replay(t *Trace, arenaCapacity int) (Stats, error) {
	arena, err := memlib.NewMmap(arenaCapacity)
	if err != nil {
		return Stats{}, err
	}

	h, err := alloc.NewHeap(arena)
	if err != nil {
		return Stats{}, err
	}

	live := make(map[int]uintptr)
	addresses := make(map[int]unsafe.Pointer)
	var stats Stats

	for i, op := range t.Ops {
		switch op.Kind {
		case OpMalloc:
			bp := h.Malloc(op.Size)
			if bp == nil {
				return stats, fmt.Errorf("replay: op %d: malloc(%d) for id %d failed", i, op.Size, op.ID)
			}
			live[op.ID] = alloc.PayloadSize(bp)
			addresses[op.ID] = bp

		case OpFree:
			bp, ok := addresses[op.ID]
			if !ok {
				return stats, fmt.Errorf("replay: op %d: free of unknown id %d", i, op.ID)
			}
			h.Free(bp)
			delete(live, op.ID)
			delete(addresses, op.ID)

		case OpRealloc:
			bp, ok := addresses[op.ID]
			if !ok {
				return stats, fmt.Errorf("replay: op %d: realloc of unknown id %d", i, op.ID)
			}
			newBp := h.Realloc(bp, op.Size)
			if newBp == nil && op.Size != 0 {
				return stats, fmt.Errorf("replay: op %d: realloc(%d) for id %d failed", i, op.Size, op.ID)
			}
			if op.Size == 0 {
				delete(live, op.ID)
				delete(addresses, op.ID)
			} else {
				live[op.ID] = alloc.PayloadSize(newBp)
				addresses[op.ID] = newBp
			}
		}

		stats.Ops++

		var payload uintptr
		for _, n := range live {
			payload += n
		}
		if payload > stats.PeakPayload {
			stats.PeakPayload = payload
		}
		if arena.Len() > stats.PeakArenaBytes {
			stats.PeakArenaBytes = arena.Len()
		}

		if v := h.CheckHeap(false); len(v) != 0 {
			stats.Violations = v
			return stats, fmt.Errorf("replay: op %d: %d invariant violation(s)", i, len(v))
		}
	}

	return stats, nil
}
