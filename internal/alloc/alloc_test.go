package alloc

import (
	"testing"
	"unsafe"

	"github.com/orizon-lang/heapmalloc/internal/memlib"
)

func newTestHeap(t *testing.T) *Heap {
	t.Helper()

	arena, err := memlib.NewMmap(8 * 1024 * 1024)
	if err != nil {
		t.Fatalf("NewMmap: %v", err)
	}

	h, err := NewHeap(arena)
	if err != nil {
		t.Fatalf("NewHeap: %v", err)
	}

	return h
}

func assertClean(t *testing.T, h *Heap) {
	t.Helper()

	if v := h.CheckHeap(false); len(v) != 0 {
		for _, violation := range v {
			t.Errorf("invariant violation: %s", violation)
		}
	}
}

func writePattern(bp unsafe.Pointer, n uintptr) {
	s := unsafe.Slice((*byte)(bp), n)
	for i := range s {
		s[i] = byte(i % 251)
	}
}

func checkPattern(t *testing.T, bp unsafe.Pointer, n uintptr) {
	t.Helper()

	s := unsafe.Slice((*byte)(bp), n)
	for i := range s {
		if s[i] != byte(i%251) {
			t.Fatalf("payload corrupted at byte %d", i)
		}
	}
}

// Scenario 1: basic malloc/free round trip.
func TestBasic(t *testing.T) {
	h := newTestHeap(t)

	p := h.Malloc(16)
	if p == nil {
		t.Fatal("malloc(16) returned nil")
	}

	writePattern(p, 16)
	checkPattern(t, p, 16)

	h.free(p)
	assertClean(t, h)
}

func TestZeroAllocationReturnsNil(t *testing.T) {
	h := newTestHeap(t)

	if p := h.Malloc(0); p != nil {
		t.Fatal("malloc(0) should return nil")
	}
}

func TestFreeNilIsNoOp(t *testing.T) {
	h := newTestHeap(t)
	h.free(nil) // must not panic
	assertClean(t, h)
}

// Scenario 2: a single small malloc leaves one large free block behind.
func TestSplitLeavesRemainderOnFreeList(t *testing.T) {
	h := newTestHeap(t)

	asize := align8(16) + 2*tagSize
	p := h.Malloc(16)
	if p == nil {
		t.Fatal("malloc failed")
	}

	remainderSize := blockSize(h.freeListp)
	wantRemainder := uintptr(ChunkSize) - asize

	if remainderSize != wantRemainder {
		t.Fatalf("remainder = %d, want %d", remainderSize, wantRemainder)
	}

	assertClean(t, h)
}

// Scenario 3: coalesce-forward — freeing b then c must merge them. c is
// followed by the free remainder of the initial chunk, so freeing c merges
// b, c, and that remainder into one block.
func TestCoalesceForward(t *testing.T) {
	h := newTestHeap(t)

	a := h.Malloc(16)
	b := h.Malloc(16)
	c := h.Malloc(16)

	if a == nil || b == nil || c == nil {
		t.Fatal("malloc failed")
	}

	bSize := blockSize(b)
	cSize := blockSize(c)
	tailSize := blockSize(nextBlock(c))

	h.free(b)
	h.free(c)

	merged := h.findFit(bSize + cSize)
	if merged == nil {
		t.Fatal("expected a merged free block covering b and c")
	}

	if blockSize(merged) != bSize+cSize+tailSize {
		t.Fatalf("merged size = %d, want %d", blockSize(merged), bSize+cSize+tailSize)
	}

	assertClean(t, h)
}

// Scenario 4: coalesce-backward — freeing c then b must merge them.
func TestCoalesceBackward(t *testing.T) {
	h := newTestHeap(t)

	a := h.Malloc(16)
	b := h.Malloc(16)
	c := h.Malloc(16)

	if a == nil || b == nil || c == nil {
		t.Fatal("malloc failed")
	}

	bSize := blockSize(b)
	cSize := blockSize(c)

	h.free(c)
	h.free(b)

	merged := h.findFit(bSize + cSize)
	if merged == nil {
		t.Fatal("expected a merged free block covering b and c")
	}

	assertClean(t, h)
}

// Scenario 5: coalesce-both — freeing a, then c, then b merges all three.
// Freeing c first absorbs the free remainder of the initial chunk that
// follows it, so the final block also covers that remainder.
func TestCoalesceBoth(t *testing.T) {
	h := newTestHeap(t)

	a := h.Malloc(32)
	b := h.Malloc(32)
	c := h.Malloc(32)

	if a == nil || b == nil || c == nil {
		t.Fatal("malloc failed")
	}

	total := blockSize(a) + blockSize(b) + blockSize(c) + blockSize(nextBlock(c))

	h.free(a)
	h.free(c)
	h.free(b)

	merged := h.findFit(total)
	if merged == nil {
		t.Fatal("expected one contiguous free block covering a, b, and c")
	}

	if blockSize(merged) != total {
		t.Fatalf("merged size = %d, want %d", blockSize(merged), total)
	}

	assertClean(t, h)
}

// Scenario 6: growth — allocating beyond one CHUNKSIZE forces extendHeap.
func TestHeapGrowth(t *testing.T) {
	h := newTestHeap(t)

	var ptrs []unsafe.Pointer

	var total uintptr
	for total < 2*ChunkSize {
		p := h.Malloc(64)
		if p == nil {
			t.Fatal("malloc failed during growth")
		}

		if uintptr(p)%8 != 0 {
			t.Fatalf("payload %p not 8-byte aligned", p)
		}

		ptrs = append(ptrs, p)
		total += align8(64) + 2*tagSize
	}

	assertClean(t, h)

	for _, p := range ptrs {
		h.free(p)
	}

	assertClean(t, h)
}

// Scenario 7: exhaustion — malloc returns nil once the arena is full, and
// the heap stays valid; previously allocated blocks can still be freed.
func TestExhaustion(t *testing.T) {
	arena, err := memlib.NewMmap(int(minBlockSize) + 8 + ChunkSize)
	if err != nil {
		t.Fatalf("NewMmap: %v", err)
	}

	h, err := NewHeap(arena)
	if err != nil {
		t.Fatalf("NewHeap: %v", err)
	}

	var ptrs []unsafe.Pointer

	for {
		p := h.Malloc(256)
		if p == nil {
			break
		}

		ptrs = append(ptrs, p)
	}

	if len(ptrs) == 0 {
		t.Fatal("expected at least one successful allocation before exhaustion")
	}

	assertClean(t, h)

	for _, p := range ptrs {
		h.free(p)
	}

	assertClean(t, h)
}

// Scenario 8: realloc preserves the first old-size bytes.
func TestReallocCopiesExistingBytes(t *testing.T) {
	h := newTestHeap(t)

	p := h.Malloc(10)
	if p == nil {
		t.Fatal("malloc failed")
	}

	writePattern(p, 10)

	q := h.Realloc(p, 100)
	if q == nil {
		t.Fatal("realloc failed")
	}

	checkPattern(t, q, 10)
	assertClean(t, h)
}

func TestReallocNilIsMalloc(t *testing.T) {
	h := newTestHeap(t)

	p := h.Realloc(nil, 32)
	if p == nil {
		t.Fatal("realloc(nil, n) should behave like malloc(n)")
	}

	assertClean(t, h)
}

func TestReallocZeroIsFree(t *testing.T) {
	h := newTestHeap(t)

	p := h.Malloc(32)
	if p == nil {
		t.Fatal("malloc failed")
	}

	if q := h.Realloc(p, 0); q != nil {
		t.Fatal("realloc(p, 0) should return nil")
	}

	assertClean(t, h)
}

func TestMinBlockSizeDerivedFromPointerWidth(t *testing.T) {
	want := align8(uintptr(tagSize) + 2*ptrSize + uintptr(tagSize))
	if minBlockSize != want {
		t.Fatalf("minBlockSize = %d, want %d", minBlockSize, want)
	}

	if ptrSize == 8 && minBlockSize != 24 {
		t.Fatalf("on a 64-bit target minBlockSize should be 24, got %d", minBlockSize)
	}
}

func TestPrologueSelfReference(t *testing.T) {
	h := newTestHeap(t)

	if prevBlock(h.prologueBp) != h.prologueBp {
		t.Fatal("prevBlock(prologue) must alias the prologue itself")
	}
}
