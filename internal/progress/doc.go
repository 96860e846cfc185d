// Package progress carries the output of long-running operations to whoever is
// displaying it.
//
// Operations publish plain text; a Feed stamps each line with the time, queues it
// without blocking the publisher and delivers it, in order, from one consumer
// goroutine. Lines from one operation keep their order; lines of independent
// operations may interleave.
package progress
