package types

import "errors"

// Sentinel errors for Matchbook operations.
var (
	// ErrEmptyExpression indicates a blank formula string.
	ErrEmptyExpression = errors.New("expression is empty")

	// ErrExpressionTooLong indicates a formula exceeds the configured maximum length.
	ErrExpressionTooLong = errors.New("expression exceeds maximum length")

	// ErrNoIdentifierColumn indicates a reference sheet has no column matching
	// any configured identifier synonym. The sheet is skipped, not fatal.
	ErrNoIdentifierColumn = errors.New("no identifier column in reference sheet")

	// ErrEmptySheet indicates a reference sheet carries no rows.
	ErrEmptySheet = errors.New("reference sheet has no rows")

	// ErrMissingJoinKey indicates a multi-source mapping config has an
	// attachment source with no usable join key.
	ErrMissingJoinKey = errors.New("attachment source has no join key and no internal_join_key default")

	// ErrUnknownColumnRule indicates a template column definition with an
	// unrecognized rule type.
	ErrUnknownColumnRule = errors.New("unknown column rule type")

	// ErrTemplateColumnUndefined indicates a column named in column_order
	// with no matching definition.
	ErrTemplateColumnUndefined = errors.New("column in column_order has no definition")

	// ErrNoSuchTemplate indicates a template lookup by name/version found nothing.
	ErrNoSuchTemplate = errors.New("template not found")
)
