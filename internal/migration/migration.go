package migration

import (
	"crypto/sha256"
	"encoding/hex"
)

// Script is a single versioned migration resolved from the registry.
type Script struct {
	Version     Version // parsed from the filename
	Description string  // "add books table" for V2__add_books_table.sql
	SQL         string  // trimmed file contents
	Checksum    string  // SHA-256 hex digest of SQL
	Filename    string  // base name of the script file
}

// ComputeChecksum returns the SHA-256 hex digest of the given SQL string.
func ComputeChecksum(sql string) string {
	h := sha256.Sum256([]byte(sql))

	return hex.EncodeToString(h[:])
}
