// Package codec converts single typed values to and from VM slots.
//
// Reads never touch reference counts. Writes classify the destination: the
// return and parameter slots of the call frame are transient, everything else
// (globals, entity fields) is persistent. Persistent writes release a dynamic
// string previously held there, and persistent string writes go through the
// intern table's Assign so the new slot is counted as an owner.
package codec
