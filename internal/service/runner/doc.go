// Package runner is the single way the services execute external programs.
//
// Stream hands the merged output of a program to a callback line by line while
// it runs; Check and Output are fail-fast variants for one-shot calls; Start
// launches programs the caller does not wait for. Every call blocks its caller
// except Start, so services invoke them from their own goroutines.
package runner
