// Package filesystem provides implementations of the types.FS
// interface. The OS implementation backs real runs; the afero
// implementation backs in-memory tests for logic that never touches
// symlinks.
package filesystem
