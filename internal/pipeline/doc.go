// Package pipeline orchestrates batch conversion: discover matching files,
// dispatch them to a bounded worker pool, clean up sources according to
// the cleanup policy, and report aggregate stats.
//
// Flow of one batch:
//
//	Discover(dir, ext)        sorted snapshot of matching files
//	Dispatch(ctx, ..., fn)    N workers run fn per file; results in
//	                          discovery order, events in completion order
//	Cleanup(results, policy)  delete converted sources; keep or
//	                          quarantine failed ones
//
// The pipeline never prints progress itself; callers pass an [Observer].
package pipeline
