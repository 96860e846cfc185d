// Package toolbox manages the development container and the catalog applications
// installed inside it.
//
// An application counts as installed when its launcher entry exists in the
// applications directory. The entry is written only after the in-container install
// succeeded and removed only after the uninstall succeeded; Verify compares it with
// the packages actually present in the container without changing anything.
package toolbox
