// Package ledger records generate runs in a SQLite database so that a later
// run can prove the generated C# is reproducible.
//
// Each run stores:
//   - Runs: run ID (UUIDv7), logical seq, tool version, source hash, status
//   - Outputs: one row per written unit with its content hash
//   - Failures: sources that produced no output and why
//
// Ordering uses the logical seq column, never timestamps. Content hashes are
// SHA-256 over NFC-normalized text with a versioned domain prefix, so the
// same generated text always hashes the same regardless of Unicode form.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package ledger
