// Package atomicfile replaces small files in place with go-update, verifying a
// checksum of the new contents before swapping them in.
package atomicfile
