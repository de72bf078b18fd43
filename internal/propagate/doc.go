// Package propagate writes confirmed versions back into a project: the module
// descriptor's version property and the per-package version markers.
//
// Every file written is reported to a Refresher so in-memory project state
// can follow the disk.
package propagate
