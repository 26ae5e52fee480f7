// Package session holds the client's authentication credential.
//
// State is the single owner of the bearer token. Every change goes to the
// durable Store first and to memory second, so a failed write never leaves
// the two disagreeing. New(store) seeds memory from the store, which is how
// a restarted client resumes a session without logging in again.
//
// Stores: MemoryStore for tests and SQLiteStore (modernc.org/sqlite, no cgo)
// for the CLI. Both keep the token under one key.
package session
