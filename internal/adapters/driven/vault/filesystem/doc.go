// Package filesystem provides the vault adapter over a local directory tree of
// markdown files, and a watcher that reports changed documents.
//
// Directories whose name starts with "." are never listed or watched. Paths
// handed to and returned from the adapter are vault-relative with forward
// slashes; a path that would escape the vault root is rejected.
package filesystem
