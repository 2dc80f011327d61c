// Package naming owns every filename scheme texmaster relies on:
//
//   - the flatten codec, which encodes a relative path into a single
//     filename segment joined by [Delimiter] and decodes it back;
//   - the compression suffix carried by PNGs produced from DDS files
//     (<basename>_<mode>_compression.png);
//   - in-run collision detection for flattened target names.
//
// Nothing in this package touches the filesystem.
package naming
