package analysis

import "errors"

// Sentinel errors returned by table operations. Callers match them with errors.Is;
// the returned errors usually wrap one of these with extra context.
var (
	// ErrUnreadableFile indicates the input could not be parsed as a table.
	ErrUnreadableFile = errors.New("unreadable file")
	// ErrTooManyRows indicates the input exceeds the configured row cap.
	ErrTooManyRows = errors.New("too many rows")
	// ErrUnknownColumn indicates a column name that is not in the table.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrNotNumeric indicates a numeric operation was requested on a text column.
	ErrNotNumeric = errors.New("column is not numeric")
	// ErrEmptyColumn indicates a column without any non-null values.
	ErrEmptyColumn = errors.New("column has no values")
	// ErrNoPriceColumn indicates no header contains "price".
	ErrNoPriceColumn = errors.New("no price-like column found")
	// ErrNotPriceColumn indicates the requested column is not a price-like column.
	ErrNotPriceColumn = errors.New("column is not price-like")
	// ErrNoNumericColumns indicates the table has no numeric columns.
	ErrNoNumericColumns = errors.New("no numeric columns")
	// ErrInvalidRange indicates a filter range whose minimum exceeds its maximum.
	ErrInvalidRange = errors.New("invalid range")
)
