// Package toolbox describes the fixed catalog of development applications that
// can be installed into the toolbox container, one table row per application.
package toolbox
