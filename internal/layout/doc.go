// Package layout implements the flatten/restore folder transforms.
//
// Flatten moves every matching file below a root directly into the root,
// encoding its relative directory into the filename with
// [naming.Delimiter]. Restore reverses the move. Collisions are detected
// before anything is moved, and each flatten records the exact mapping in
// a compressed sidecar index so restore is exact even for names the
// delimiter scheme alone cannot reverse.
package layout
