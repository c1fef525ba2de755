package tracker

import "errors"

// ErrAlreadyApplied indicates a success record already exists for the version.
var ErrAlreadyApplied = errors.New("migration already recorded as applied")

// ErrTableCreation indicates the history table could not be created.
var ErrTableCreation = errors.New("creating schema history table")
