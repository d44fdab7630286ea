// Package atomicfile replaces documents on disk so that readers observe either
// the previous content or the complete new content, never a partial write.
//
// Writer stages content in a temporary file inside the destination directory,
// flushes it to stable storage, and renames it over the destination. Temporary
// files never outlive a failed write.
package atomicfile
