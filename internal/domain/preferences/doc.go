// Package preferences holds the user-facing update preferences and their defaults.
package preferences
