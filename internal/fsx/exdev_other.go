//go:build !unix

package fsx

// Windows reports cross-volume moves as ERROR_NOT_SAME_DEVICE; os.Rename
// there already falls back to MoveFileEx with copy semantics, so nothing is
// tagged.
func isEXDEV(err error) bool { return false }
