// Package checker runs automatic updates in the background.
//
// The checker wakes up on a fixed interval and whenever the release descriptor
// changes. It updates only when automatic updates are enabled and the configured
// check frequency has elapsed since the last check, shares the update lock with
// manual updates, and reports the outcome through a desktop notification.
package checker
