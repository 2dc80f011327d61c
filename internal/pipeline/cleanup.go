package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/backmassage/texmaster/internal/fsx"
)

// CleanupPolicy decides what happens to source files after a batch.
// The zero value deletes converted sources and leaves failed ones in place.
type CleanupPolicy struct {
	Root         string // Batch directory; quarantine paths are relative to it.
	Keep         bool   // Delete nothing.
	DeleteFailed bool   // Delete failed sources too.
	Quarantine   string // Move failed sources here, layout preserved.
	DryRun       bool   // Count what would happen; touch nothing.
}

// CleanupReport summarizes a cleanup pass.
type CleanupReport struct {
	Deleted     []string
	Quarantined []string
	Kept        []string // Failed or skipped sources left in place.
	Errors      []error
}

// Cleanup applies p to results. Skipped tasks (never run, or interrupted)
// always keep their source. Errors are collected per file; one failing
// removal does not stop the others.
func Cleanup(results []TaskResult, p CleanupPolicy) CleanupReport {
	var rep CleanupReport
	if p.Keep {
		for _, r := range results {
			rep.Kept = append(rep.Kept, r.Source)
		}
		return rep
	}

	for _, r := range results {
		switch {
		case r.Status == StatusConverted,
			r.Status == StatusFailed && p.DeleteFailed:
			if !p.DryRun {
				if err := os.Remove(r.Source); err != nil && !os.IsNotExist(err) {
					rep.Errors = append(rep.Errors, fmt.Errorf("delete %s: %w", r.Source, err))
					continue
				}
			}
			rep.Deleted = append(rep.Deleted, r.Source)

		case r.Status == StatusFailed && p.Quarantine != "":
			dst, err := quarantinePath(p.Root, p.Quarantine, r.Source)
			if err == nil && !p.DryRun {
				err = fsx.MoveNoReplace(r.Source, dst)
			}
			if err != nil {
				rep.Errors = append(rep.Errors, fmt.Errorf("quarantine %s: %w", r.Source, err))
				rep.Kept = append(rep.Kept, r.Source)
				continue
			}
			rep.Quarantined = append(rep.Quarantined, r.Source)

		default:
			rep.Kept = append(rep.Kept, r.Source)
		}
	}
	return rep
}

// quarantinePath maps src under root to the same relative path under dir.
func quarantinePath(root, dir, src string) (string, error) {
	rel, err := filepath.Rel(root, src)
	if err != nil {
		return "", err
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%s is outside %s", src, root)
	}
	return filepath.Join(dir, rel), nil
}
