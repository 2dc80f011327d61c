package layout

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/backmassage/texmaster/internal/fsx"
	"github.com/backmassage/texmaster/internal/naming"
)

var (
	// ErrNameCollision marks a file whose flattened name is shared with
	// another file, or already taken in the root.
	ErrNameCollision = errors.New("flattened name collision")
	// ErrUnsafeIndexPath marks an index entry that would land outside root.
	ErrUnsafeIndexPath = errors.New("index entry escapes root")
)

// Options controls which files are moved and whether anything is written.
type Options struct {
	Ext     string // Extension with leading dot, matched case-insensitively. Empty matches all files.
	DryRun  bool   // Plan and report without moving.
	NoIndex bool   // Skip reading/writing the sidecar index.
}

// Entry is the outcome for a single file. Paths are absolute.
type Entry struct {
	Src string
	Dst string
	Err error
}

// Report lists the outcome of a flatten or restore run.
type Report struct {
	Moved  []Entry
	Failed []Entry
}

func (o Options) matches(name string) bool {
	if o.Ext == "" {
		return true
	}
	return strings.EqualFold(filepath.Ext(name), o.Ext)
}

type move struct {
	src    string
	rel    string
	target string
}

// Flatten moves every matching file below root into root under its encoded
// name. Files already directly inside root are left alone. All moves are
// planned first; every file involved in a name collision is rejected with
// ErrNameCollision and stays where it is. Non-matching files and emptied
// directories are left untouched.
func Flatten(ctx context.Context, root string, opts Options) (Report, error) {
	var rep Report

	root = filepath.Clean(root)
	plans, err := planFlatten(root, opts)
	if err != nil {
		return rep, err
	}

	resolver := naming.NewCollisionResolver()
	entries, err := os.ReadDir(root)
	if err != nil {
		return rep, err
	}
	for _, e := range entries {
		resolver.Reserve(e.Name())
	}
	for _, p := range plans {
		resolver.Claim(p.rel, p.target)
	}

	var idx *Index
	if !opts.NoIndex && !opts.DryRun {
		if idx, err = LoadIndex(root); err != nil {
			return rep, err
		}
	}

	for _, p := range plans {
		dst := filepath.Join(root, p.target)
		if err := ctx.Err(); err != nil {
			rep.Failed = append(rep.Failed, Entry{Src: p.src, Dst: dst, Err: err})
			continue
		}
		if resolver.Conflicted(p.target) {
			err := fmt.Errorf("%w: %s (claimed by %s)", ErrNameCollision, p.target,
				strings.Join(resolver.Claimants(p.target), ", "))
			rep.Failed = append(rep.Failed, Entry{Src: p.src, Dst: dst, Err: err})
			continue
		}
		if opts.DryRun {
			rep.Moved = append(rep.Moved, Entry{Src: p.src, Dst: dst})
			continue
		}
		if err := fsx.MoveNoReplace(p.src, dst); err != nil {
			rep.Failed = append(rep.Failed, Entry{Src: p.src, Dst: dst, Err: err})
			continue
		}
		rep.Moved = append(rep.Moved, Entry{Src: p.src, Dst: dst})
		if idx != nil {
			idx.Record(p.target, p.rel)
		}
	}

	if idx != nil && len(rep.Moved) > 0 {
		idx.bump()
		if err := idx.Save(root); err != nil {
			return rep, fmt.Errorf("save index: %w", err)
		}
	}
	return rep, nil
}

func planFlatten(root string, opts Options) ([]move, error) {
	var plans []move
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() || !opts.matches(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if filepath.Dir(rel) == "." {
			return nil
		}
		plans = append(plans, move{src: path, rel: rel, target: naming.EncodeRel(rel)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].src < plans[j].src })
	return plans, nil
}

// Restore moves every matching encoded file directly inside root back to
// the relative path it was flattened from. The sidecar index is consulted
// first; names without an index entry are decoded by splitting on the
// delimiter. Existing destinations are never overwritten.
func Restore(ctx context.Context, root string, opts Options) (Report, error) {
	var rep Report

	root = filepath.Clean(root)
	idx := newIndex()
	if !opts.NoIndex {
		loaded, err := LoadIndex(root)
		if err != nil {
			return rep, err
		}
		idx = loaded
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return rep, err
	}

	changed := false
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || name == IndexName || !opts.matches(name) {
			continue
		}
		src := filepath.Join(root, name)

		rel, indexed := idx.Lookup(name)
		if indexed {
			if !filepath.IsLocal(rel) {
				rep.Failed = append(rep.Failed, Entry{Src: src, Err: fmt.Errorf("%w: %q", ErrUnsafeIndexPath, rel)})
				continue
			}
		} else {
			if !naming.IsEncoded(name) {
				continue
			}
			if rel, err = naming.DecodeRel(name); err != nil {
				rep.Failed = append(rep.Failed, Entry{Src: src, Err: err})
				continue
			}
		}

		dst := filepath.Join(root, rel)
		if dst == src {
			continue
		}
		if err := ctx.Err(); err != nil {
			rep.Failed = append(rep.Failed, Entry{Src: src, Dst: dst, Err: err})
			continue
		}
		if opts.DryRun {
			rep.Moved = append(rep.Moved, Entry{Src: src, Dst: dst})
			continue
		}
		if err := fsx.MoveNoReplace(src, dst); err != nil {
			rep.Failed = append(rep.Failed, Entry{Src: src, Dst: dst, Err: err})
			continue
		}
		rep.Moved = append(rep.Moved, Entry{Src: src, Dst: dst})
		if indexed {
			delete(idx.Entries, name)
			changed = true
		}
	}

	if changed && !opts.DryRun {
		if err := idx.Save(root); err != nil {
			return rep, fmt.Errorf("save index: %w", err)
		}
	}
	return rep, nil
}
