// Package magick drives the external ImageMagick binary that performs the
// actual DDS <-> PNG conversion.
//
// builder.go assembles argument lists, executor.go runs the binary as a
// blocking subprocess with stderr capture, identify.go parses the verbose
// identify report for the compression mode, and errors.go classifies
// failures into readable categories. [Magick] ties them together behind the
// conversion backend contract.
package magick
