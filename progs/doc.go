// Package progs describes VM storage: type tags, named definitions, where
// globals and entity records live in Memory, and the entity record lifecycle.
package progs
