package pipesql

import (
	"errors"
)

var (
	// ErrMalformedRecord reports a record with no columns, an unnamed column or a duplicate column name.
	ErrMalformedRecord = errors.New("pipesql: malformed record")

	// ErrAmbiguousRowIdentification reports an UPDATE or DELETE without any condition column.
	// Rendering it would produce a statement that touches every row of the table.
	ErrAmbiguousRowIdentification = errors.New("pipesql: ambiguous row identification")

	// ErrNoUpdatableColumns reports an UPDATE whose SET list would be empty.
	ErrNoUpdatableColumns = errors.New("pipesql: no updatable columns")

	// ErrUnsupportedDialectFeature is returned only by callers that require an optional dialect capability.
	ErrUnsupportedDialectFeature = errors.New("pipesql: unsupported dialect feature")

	// ErrUnknownDialect reports a database type with no registered dialect.
	ErrUnknownDialect = errors.New("pipesql: unknown dialect")

	// ErrIncomparablePositions reports positions of kinds that have no ordering between them.
	ErrIncomparablePositions = errors.New("pipesql: incomparable positions")

	// ErrUnsupportedCursorValue reports a cursor value that is neither an integer nor a string.
	ErrUnsupportedCursorValue = errors.New("pipesql: unsupported cursor value")
)
