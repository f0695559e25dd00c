package db

import (
	"context"
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// AdvisoryKey derives a stable advisory lock key for scope and id.
func AdvisoryKey(scope, id string) int64 {
	sum := blake2b.Sum256([]byte(scope + ":" + id))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// LockXact takes a transaction-scoped advisory lock, released on commit or rollback.
func LockXact(ctx context.Context, q DBTX, scope, id string) error {
	_, err := q.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", AdvisoryKey(scope, id))
	return err
}
