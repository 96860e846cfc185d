// Package updater runs manual and automatic image updates.
//
// An update upgrades packages with rpm-ostree, then compares the published release
// descriptor with the stored and running versions and rebases when they differ. A marker
// file makes updates mutually exclusive across processes; progress lines go to a
// progress.Publisher as the external commands print them.
package updater
