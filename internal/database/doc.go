// Package database provides SQLite-based storage for llmsgen run history.
//
// With --save, each generated site map is stored together with its page
// list, structure fingerprint, documents, and crawl statistics. The history
// commands list stored runs and diff two runs of the same origin.
//
// Design decision: We use SQLite (via modernc.org/sqlite) because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. WAL mode provides good concurrent read performance
package database
