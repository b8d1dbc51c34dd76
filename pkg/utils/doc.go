// Package utils provides the small helpers shared by the postgres repositories.
//
//   - DBTX, satisfied by *pgxpool.Pool and pgx.Tx, so queries run inside or
//     outside a transaction
//   - InTx for begin/commit/rollback
//   - IsUniqueViolation to recognise a 23505 from a UNIQUE constraint
//   - ContainsPattern for ILIKE substring filters
//   - RowNotFound, the -1 sentinel returned by deletes of missing rows
package utils
