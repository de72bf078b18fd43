// Package workspace loads the project being released: its manifest, the
// ordered module list, and each module's descriptor.
//
// The manifest (releasekit.yaml at the project root) is decoded with yaml.v3
// and checked against an embedded CUE schema before use. Descriptors are
// key/value property files edited in memory and written back line for line,
// so only the bundle-version value ever changes. All file access goes through
// a go-billy filesystem rooted at the project, which lets tests run entirely
// in memory.
package workspace
