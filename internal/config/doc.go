// Package config defines the settings shared by the treeos binaries: file
// locations, the external update and toolbox commands, and checker timing.
//
// Settings are read from YAML on top of defaults derived from the user's home
// directory, so a machine without a settings file works out of the box.
package config
