// Package bundle assembles the tool's module directories into a single file
// and loads such a file back as in-process routines.
//
// A loaded bundle lives in an in-memory filesystem. The same registry
// Scanner that reads the disk layout reads that filesystem, so the routines
// a bundle registers carry exactly the command names a disk scan of the same
// sources would produce.
package bundle
