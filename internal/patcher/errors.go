package patcher

import "errors"

var (
	// ErrEmptyImport is returned by EnsureImport when the import line is blank.
	ErrEmptyImport = errors.New("empty import line")
	// ErrEmptyHelperName is returned by EnsureHelper when no helper name is given.
	ErrEmptyHelperName = errors.New("empty helper name")
	// ErrEmptyInsert is returned by InsertBefore when there is nothing to insert.
	ErrEmptyInsert = errors.New("empty insert text")
	// ErrInvalidPattern wraps regular expression compile failures.
	ErrInvalidPattern = errors.New("invalid pattern")
)
