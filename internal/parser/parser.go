package parser //nolint:revive // intentional: does not conflict with go/parser in internal package

import (
	"errors"
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// ErrNonTransactional indicates a statement that cannot run inside a transaction block.
var ErrNonTransactional = errors.New("statement cannot run inside a transaction")

// ParseResult holds the parsed AST and the SQL text the statement locations refer to.
type ParseResult struct {
	Stmts []*pg_query.RawStmt
	SQL   string
}

// Parse parses a PostgreSQL SQL string and returns the AST.
// Returns an empty result (zero statements) for empty or whitespace-only input.
func Parse(sql string) (*ParseResult, error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return &ParseResult{}, nil
	}

	tree, err := pg_query.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parsing SQL: %w", err)
	}

	return &ParseResult{
		Stmts: tree.Stmts,
		SQL:   trimmed,
	}, nil
}

// Statements returns the text of each parsed statement, in order, without
// the trailing semicolon.
func (r *ParseResult) Statements() []string {
	out := make([]string, 0, len(r.Stmts))

	for _, stmt := range r.Stmts {
		start := int(stmt.StmtLocation)
		end := len(r.SQL)

		if stmt.StmtLen > 0 {
			end = start + int(stmt.StmtLen)
		}

		if start < 0 || start > len(r.SQL) || end > len(r.SQL) || start >= end {
			continue
		}

		text := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(r.SQL[start:end]), ";"))
		if text != "" {
			out = append(out, text)
		}
	}

	return out
}

// Split parses sql and returns its individual statements.
func Split(sql string) ([]string, error) {
	result, err := Parse(sql)
	if err != nil {
		return nil, err
	}

	return result.Statements(), nil
}

// CheckTransactional returns ErrNonTransactional if any statement in the
// parsed SQL must run outside a transaction block, or manages the
// transaction itself.
func (r *ParseResult) CheckTransactional() error {
	for i, stmt := range r.Stmts {
		if kind := nonTransactionalKind(stmt); kind != "" {
			return fmt.Errorf("statement %d (%s): %w", i+1, kind, ErrNonTransactional)
		}
	}

	return nil
}

func nonTransactionalKind(stmt *pg_query.RawStmt) string {
	if stmt == nil || stmt.Stmt == nil {
		return ""
	}

	switch node := stmt.Stmt.Node.(type) {
	case *pg_query.Node_IndexStmt:
		if node.IndexStmt != nil && node.IndexStmt.Concurrent {
			return "CREATE INDEX CONCURRENTLY"
		}
	case *pg_query.Node_DropStmt:
		if node.DropStmt != nil && node.DropStmt.Concurrent {
			return "DROP INDEX CONCURRENTLY"
		}
	case *pg_query.Node_VacuumStmt:
		return "VACUUM"
	case *pg_query.Node_CreatedbStmt:
		return "CREATE DATABASE"
	case *pg_query.Node_DropdbStmt:
		return "DROP DATABASE"
	case *pg_query.Node_AlterSystemStmt:
		return "ALTER SYSTEM"
	case *pg_query.Node_TransactionStmt:
		return "transaction control"
	}

	return ""
}
