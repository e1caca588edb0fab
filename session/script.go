package session

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/cosim/sim/timing"
)

// ErrBadScript is returned when a bus script cannot be parsed.
var ErrBadScript = errors.New("bad bus script")

// OpKind names a bus-script operation.
type OpKind string

// Bus-script operations.
const (
	OpRead    OpKind = "read"
	OpWrite   OpKind = "write"
	OpAdvance OpKind = "advance"
	OpStop    OpKind = "stop"
	OpReset   OpKind = "reset"
)

// An Op is one line of a bus script: a CPU-side access issued at a virtual
// time.
type Op struct {
	Line    int
	At      timing.VTimeInSec
	Kind    OpKind
	Address uint64
	Size    int
	Value   uint64
}

func (op Op) String() string {
	switch op.Kind {
	case OpRead:
		return fmt.Sprintf("read 0x%08X %d", op.Address, op.Size)
	case OpWrite:
		return fmt.Sprintf("write 0x%08X %d 0x%X", op.Address, op.Size, op.Value)
	case OpAdvance:
		return fmt.Sprintf("advance %d", op.Value)
	}

	return string(op.Kind)
}

// ParseScript reads a bus script. Each line is
//
//	<time-us> <op> [args]
//
// where op is one of "read ADDR SIZE", "write ADDR SIZE VALUE", "advance N",
// "stop", and "reset". Numbers may be decimal or 0x-prefixed hex. Blank lines
// and text after '#' are ignored. Times must not decrease.
func ParseScript(r io.Reader) ([]Op, error) {
	var (
		ops     []Op
		lineNum int
		last    timing.VTimeInSec
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNum++

		text, _, _ := strings.Cut(scanner.Text(), "#")
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}

		op, err := parseOp(fields)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadScript, lineNum, err)
		}

		if op.At < last {
			return nil, fmt.Errorf("%w: line %d: time goes backwards",
				ErrBadScript, lineNum)
		}

		last = op.At
		op.Line = lineNum
		ops = append(ops, op)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading bus script: %w", err)
	}

	return ops, nil
}

var opArgs = map[OpKind]int{
	OpRead:    2,
	OpWrite:   3,
	OpAdvance: 1,
	OpStop:    0,
	OpReset:   0,
}

func parseOp(fields []string) (Op, error) {
	if len(fields) < 2 {
		return Op{}, errors.New("missing operation")
	}

	us, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || us < 0 {
		return Op{}, fmt.Errorf("invalid time %q", fields[0])
	}

	op := Op{
		At:   us * timing.Microsecond,
		Kind: OpKind(strings.ToLower(fields[1])),
	}

	n, ok := opArgs[op.Kind]
	if !ok {
		return Op{}, fmt.Errorf("unknown operation %q", fields[1])
	}

	args := fields[2:]
	if len(args) != n {
		return Op{}, fmt.Errorf("%s takes %d arguments, got %d",
			op.Kind, n, len(args))
	}

	switch op.Kind {
	case OpRead, OpWrite:
		err = op.parseAccess(args)
	case OpAdvance:
		op.Value, err = strconv.ParseUint(args[0], 0, 32)
		if err == nil && op.Value == 0 {
			err = errors.New("advance needs a positive count")
		}
	}

	if err != nil {
		return Op{}, err
	}

	return op, nil
}

func (op *Op) parseAccess(args []string) error {
	var err error

	op.Address, err = strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return fmt.Errorf("invalid address %q", args[0])
	}

	size, err := strconv.Atoi(args[1])
	if err != nil || (size != 1 && size != 2 && size != 4) {
		return fmt.Errorf("invalid size %q", args[1])
	}

	op.Size = size

	if op.Kind == OpWrite {
		op.Value, err = strconv.ParseUint(args[2], 0, 64)
		if err != nil {
			return fmt.Errorf("invalid value %q", args[2])
		}
	}

	return nil
}
