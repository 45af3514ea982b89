package pipesql

import (
	"bytes"
	"cmp"
	"fmt"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
)

// PositionKind identifies a Position variant.
type PositionKind uint8

const (
	PositionPlaceholder PositionKind = iota + 1
	PositionCursor
	PositionFinished
)

func (k PositionKind) String() string {
	switch k {
	case PositionPlaceholder:
		return "placeholder"
	case PositionCursor:
		return "cursor"
	case PositionFinished:
		return "finished"
	default:
		return fmt.Sprintf("PositionKind(%d)", uint8(k))
	}
}

// Position is an opaque checkpoint token. The set of implementations is closed.
type Position interface {
	Kind() PositionKind
	String() string
	position()
}

// PlaceholderPosition is used where progress is not tracked.
type PlaceholderPosition struct{}

func (PlaceholderPosition) Kind() PositionKind { return PositionPlaceholder }
func (PlaceholderPosition) String() string     { return "placeholder" }
func (PlaceholderPosition) position()          {}

// CursorPosition holds the last unique-key value observed by a full-table scan.
// Value is an int64 or a string. Drivers returning integers as text (the MySQL
// text protocol) yield []byte, which becomes an int64 when it is a canonical
// decimal integer. Time and decimal keys are not supported as cursors.
type CursorPosition struct {
	Value any
}

// NewCursorPosition normalizes v into a cursor value.
func NewCursorPosition(v any) (CursorPosition, error) {
	n, err := normalizeCursor(v)
	if err != nil {
		return CursorPosition{}, err
	}
	return CursorPosition{Value: n}, nil
}

func (CursorPosition) Kind() PositionKind { return PositionCursor }
func (p CursorPosition) String() string   { return fmt.Sprintf("cursor(%v)", p.Value) }
func (CursorPosition) position()          {}

// FinishedPosition marks an exhausted scan.
type FinishedPosition struct{}

func (FinishedPosition) Kind() PositionKind { return PositionFinished }
func (FinishedPosition) String() string     { return "finished" }
func (FinishedPosition) position()          {}

func normalizeCursor(v any) (any, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint:
		if uint64(x) > 1<<63-1 {
			return nil, fmt.Errorf("%w: %d overflows int64", ErrUnsupportedCursorValue, x)
		}
		return int64(x), nil
	case uint64:
		if x > 1<<63-1 {
			return nil, fmt.Errorf("%w: %d overflows int64", ErrUnsupportedCursorValue, x)
		}
		return int64(x), nil
	case string:
		return x, nil
	case []byte:
		s := string(x)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && strconv.FormatInt(n, 10) == s {
			return n, nil
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedCursorValue, v)
}

// ComparePositions orders two positions. Cursor values compare numerically or
// lexically; a finished position sorts after every cursor; placeholders only
// equal each other.
func ComparePositions(a, b Position) (int, error) {
	switch {
	case a.Kind() == PositionPlaceholder && b.Kind() == PositionPlaceholder:
		return 0, nil
	case a.Kind() == PositionPlaceholder || b.Kind() == PositionPlaceholder:
		return 0, fmt.Errorf("%w: %s and %s", ErrIncomparablePositions, a, b)
	case a.Kind() == PositionFinished && b.Kind() == PositionFinished:
		return 0, nil
	case a.Kind() == PositionFinished:
		return 1, nil
	case b.Kind() == PositionFinished:
		return -1, nil
	}
	av, err := normalizeCursor(a.(CursorPosition).Value)
	if err != nil {
		return 0, err
	}
	bv, err := normalizeCursor(b.(CursorPosition).Value)
	if err != nil {
		return 0, err
	}
	switch x := av.(type) {
	case int64:
		if y, ok := bv.(int64); ok {
			return cmp.Compare(x, y), nil
		}
	case string:
		if y, ok := bv.(string); ok {
			return cmp.Compare(x, y), nil
		}
	}
	return 0, fmt.Errorf("%w: %s and %s", ErrIncomparablePositions, a, b)
}

type positionEnvelope struct {
	Kind  PositionKind `msgpack:"k"`
	Value any          `msgpack:"v,omitempty"`
}

// MarshalPosition encodes a position for a checkpoint store.
func MarshalPosition(p Position) ([]byte, error) {
	if p == nil {
		p = PlaceholderPosition{}
	}
	env := positionEnvelope{Kind: p.Kind()}
	if c, ok := p.(CursorPosition); ok {
		v, err := normalizeCursor(c.Value)
		if err != nil {
			return nil, err
		}
		env.Value = v
	}
	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(env); err != nil {
		return nil, fmt.Errorf("pipesql: failed to encode position: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalPosition decodes a position produced by MarshalPosition.
func UnmarshalPosition(b []byte) (Position, error) {
	var env positionEnvelope
	if err := msgpack.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("pipesql: failed to decode position: %w", err)
	}
	switch env.Kind {
	case PositionPlaceholder:
		return PlaceholderPosition{}, nil
	case PositionFinished:
		return FinishedPosition{}, nil
	case PositionCursor:
		return NewCursorPosition(env.Value)
	}
	return nil, fmt.Errorf("pipesql: failed to decode position: unknown kind %d", env.Kind)
}
