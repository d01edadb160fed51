// Package repository implements PostgreSQL persistence for research
// sessions, uploaded documents, and run results.
//
// Each repository accepts a DBTX, so the same implementation works
// against the shared pool or inside a transaction started with
// database.DB.WithTransaction:
//
//	err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
//	    return repository.NewPgSessionRepository(tx).Create(ctx, session)
//	})
//
// Failures are translated to domain sentinels (domain.ErrNotFound,
// domain.ErrAlreadyExists, domain.ErrInvalidTransition) so callers
// never match on driver error strings. All implementations are safe
// for concurrent use; pgxpool handles connection synchronization.
package repository

import (
	"github.com/Amn-7/open-deep-research/internal/database"
)

// DBTX is the query surface shared by *pgxpool.Pool, pgx.Tx, and
// *database.DB. Repositories depend on it rather than on a concrete
// pool so transactional callers can substitute a pgx.Tx.
type DBTX = database.DBTX

// Filter pagination defaults and limits.
const (
	defaultFilterLimit = 100
	maxFilterLimit     = 1000
)

// applyPaginationDefaults clamps limit to [1, maxFilterLimit] and
// ensures offset is non-negative.
func applyPaginationDefaults(limit, offset *int) {
	if *limit <= 0 {
		*limit = defaultFilterLimit
	}
	if *limit > maxFilterLimit {
		*limit = maxFilterLimit
	}
	if *offset < 0 {
		*offset = 0
	}
}
