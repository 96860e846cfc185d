// Package common holds helpers shared by several services: the Task handle that
// replaces fire-and-forget goroutines, and detection of the desktop user.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
