// Package preferences persists the update preferences as one KEY=value pair per
// line.
//
// Reads are forgiving: a missing file gives the defaults and a malformed line
// only loses its own key. Writes touch just the keys they are given, keeping the
// rest of the file as it was, and every write replaces the file atomically.
package preferences
