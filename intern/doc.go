// Package intern owns the strings that cross into VM storage.
//
// Static handles wrap host-owned text and are never counted. Dynamic handles
// are allocated by the table and reference-counted by the slots that hold
// them: a dynamic handle's count equals the number of persistent slots
// recorded as its owners. Every write of a string into persistent storage goes
// through Assign, and every zeroing of storage goes through ReleaseRange, so
// backing text is freed exactly once, when the last owner lets go.
package intern
