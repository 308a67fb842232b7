// Package file provides the on-disk credential store.
//
// The credential is a single pretty-printed JSON document written with
// owner-only permissions. Writers replace the file atomically and hold an
// advisory lock on a sibling ".lock" file, so two recorder processes never
// interleave writes.
package file
