// Package host declares the services a game host provides to scripts.
//
// The bridge consumes these interfaces and never implements them. Each
// interface groups one family of engine calls so a host can be assembled
// from independent parts; Services composes them all.
//
// Entities cross this boundary as progs.EntityRef indices. Composite
// results use progs.EntityInvalid for "no entity".
package host
