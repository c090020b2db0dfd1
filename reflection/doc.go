// Package reflection resolves definition names and field ids to types and
// storage offsets at runtime, and parses untyped text into typed storage.
//
// A Table is built once from the full set of definitions and never mutated
// afterward, so lookups need no locking.
package reflection
