package naming

import (
	"runtime"
	"sort"
	"strings"
	"sync"
)

// CollisionResolver tracks which sources claim each flattened target name.
// A target is in conflict when more than one source claims it or when it
// was reserved (already present on disk before the run). Conflicting
// sources are rejected rather than renamed, so the mapping stays
// reversible. All methods are goroutine-safe.
type CollisionResolver struct {
	mu       sync.Mutex
	foldCase bool
	claims   map[string][]string // target key -> sources
	reserved map[string]bool
}

// NewCollisionResolver creates a ready-to-use resolver. On case-insensitive
// platforms (Windows, macOS) target names are compared case-folded.
func NewCollisionResolver() *CollisionResolver {
	return &CollisionResolver{
		foldCase: runtime.GOOS == "windows" || runtime.GOOS == "darwin",
		claims:   make(map[string][]string),
		reserved: make(map[string]bool),
	}
}

func (cr *CollisionResolver) key(target string) string {
	if cr.foldCase {
		return strings.ToLower(target)
	}
	return target
}

// Reserve marks target as occupied by a file that is not part of the run.
func (cr *CollisionResolver) Reserve(target string) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	cr.reserved[cr.key(target)] = true
}

// Claim records that src wants to be moved to target. Claiming the same
// pair twice is a no-op.
func (cr *CollisionResolver) Claim(src, target string) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	k := cr.key(target)
	for _, s := range cr.claims[k] {
		if s == src {
			return
		}
	}
	cr.claims[k] = append(cr.claims[k], src)
}

// Conflicted reports whether target is reserved or claimed by more than one
// source.
func (cr *CollisionResolver) Conflicted(target string) bool {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	k := cr.key(target)
	return cr.reserved[k] || len(cr.claims[k]) > 1
}

// Claimants returns the sources that claimed target, sorted.
func (cr *CollisionResolver) Claimants(target string) []string {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	out := append([]string(nil), cr.claims[cr.key(target)]...)
	sort.Strings(out)
	return out
}
