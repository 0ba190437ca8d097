// Package trace parses and replays allocator traces: text files describing
// a sequence of malloc/free/realloc operations, the same workload shape a
// test harness drives against the allocator to measure utilization and
// throughput.
package trace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// FormatVersion is the trace format version this package produces and
// accepts. Older traces remain readable as long as they satisfy
// CompatConstraint.
const FormatVersion = "1.0.0"

// CompatConstraint is the range of trace format versions this package will
// replay. Bumped only on a breaking change to the op line grammar.
const CompatConstraint = "^1.0.0"

// OpKind identifies the kind of operation a trace line requests.
type OpKind int

const (
	OpMalloc OpKind = iota
	OpFree
	OpRealloc
)

func (k OpKind) String() string {
	switch k {
	case OpMalloc:
		return "a"
	case OpFree:
		return "f"
	case OpRealloc:
		return "r"
	default:
		return "?"
	}
}

// Op is one parsed trace line. ID names the allocation slot this op
// targets; an OpMalloc allocates a new slot with that ID, OpFree and
// OpRealloc refer back to a slot a prior OpMalloc introduced.
type Op struct {
	Kind OpKind
	ID   int
	Size uintptr
}

// Trace is a parsed, ready-to-replay sequence of operations.
type Trace struct {
	Version *semver.Version
	Ops     []Op
}

// Parse reads a trace from r. The first line must be a header of the form
// "# heapmalloc-trace <version>"; every following non-blank, non-comment
// line is one operation: "a <id> <size>", "f <id>", or "r <id> <size>".
func Parse(r io.Reader) (*Trace, error) {
	scanner := bufio.NewScanner(r)

	if !scanner.Scan() {
		return nil, fmt.Errorf("trace: empty input, expected a header line")
	}

	version, err := parseHeader(scanner.Text())
	if err != nil {
		return nil, err
	}

	constraint, err := semver.NewConstraint(CompatConstraint)
	if err != nil {
		return nil, fmt.Errorf("trace: invalid compatibility constraint %q: %w", CompatConstraint, err)
	}

	if !constraint.Check(version) {
		return nil, fmt.Errorf("trace: format version %s does not satisfy %s", version, CompatConstraint)
	}

	t := &Trace{Version: version}

	lineNo := 1
	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		op, err := parseOp(line)
		if err != nil {
			return nil, fmt.Errorf("trace: line %d: %w", lineNo, err)
		}

		t.Ops = append(t.Ops, op)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}

	return t, nil
}

func parseHeader(line string) (*semver.Version, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 || fields[0] != "#" || fields[1] != "heapmalloc-trace" {
		return nil, fmt.Errorf("trace: malformed header %q, want \"# heapmalloc-trace <version>\"", line)
	}

	version, err := semver.NewVersion(fields[2])
	if err != nil {
		return nil, fmt.Errorf("trace: malformed version %q: %w", fields[2], err)
	}

	return version, nil
}

func parseOp(line string) (Op, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Op{}, fmt.Errorf("malformed operation %q", line)
	}

	id, err := strconv.Atoi(fields[1])
	if err != nil {
		return Op{}, fmt.Errorf("malformed id in %q: %w", line, err)
	}

	switch fields[0] {
	case "a":
		if len(fields) != 3 {
			return Op{}, fmt.Errorf("malloc op needs a size: %q", line)
		}
		size, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return Op{}, fmt.Errorf("malformed size in %q: %w", line, err)
		}
		return Op{Kind: OpMalloc, ID: id, Size: uintptr(size)}, nil

	case "f":
		if len(fields) != 2 {
			return Op{}, fmt.Errorf("free op takes no size: %q", line)
		}
		return Op{Kind: OpFree, ID: id}, nil

	case "r":
		if len(fields) != 3 {
			return Op{}, fmt.Errorf("realloc op needs a size: %q", line)
		}
		size, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return Op{}, fmt.Errorf("malformed size in %q: %w", line, err)
		}
		return Op{Kind: OpRealloc, ID: id, Size: uintptr(size)}, nil

	default:
		return Op{}, fmt.Errorf("unknown op kind %q in %q", fields[0], line)
	}
}

// WriteHeader writes the canonical header line for a fresh trace.
func WriteHeader(w io.Writer) error {
	_, err := fmt.Fprintf(w, "# heapmalloc-trace %s\n", FormatVersion)
	return err
}
