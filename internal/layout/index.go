package layout

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pierrec/lz4/v4"

	"github.com/backmassage/texmaster/internal/fsx"
)

// IndexName is the sidecar file written into the flatten root.
const IndexName = ".texmaster-index.lz4"

const indexVersion = 1

// Index maps flattened names in the root to the relative paths they came
// from. Paths are stored slash-separated.
type Index struct {
	Version    int               `json:"version"`
	Generation string            `json:"generation"`
	Entries    map[string]string `json:"entries"`
}

func newIndex() *Index {
	return &Index{Version: indexVersion, Entries: make(map[string]string)}
}

// LoadIndex reads the sidecar index from root. A missing index yields an
// empty one.
func LoadIndex(root string) (*Index, error) {
	f, err := os.Open(filepath.Join(root, IndexName))
	if errors.Is(err, os.ErrNotExist) {
		return newIndex(), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(lz4.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	idx := newIndex()
	if err := json.Unmarshal(data, idx); err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}
	if idx.Version != indexVersion {
		return nil, fmt.Errorf("index version %d not supported", idx.Version)
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]string)
	}
	return idx, nil
}

// Save writes the index atomically, or removes the file when the index is
// empty.
func (idx *Index) Save(root string) error {
	if len(idx.Entries) == 0 {
		err := os.Remove(filepath.Join(root, IndexName))
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	raw, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return fmt.Errorf("compress index: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compress index: %w", err)
	}
	return fsx.WriteFileAtomic(root, IndexName, buf.Bytes())
}

// Record stores name -> rel.
func (idx *Index) Record(name, rel string) {
	idx.Entries[name] = filepath.ToSlash(rel)
}

// Lookup returns the host-separated relative path recorded for name.
func (idx *Index) Lookup(name string) (string, bool) {
	rel, ok := idx.Entries[name]
	if !ok {
		return "", false
	}
	return filepath.FromSlash(rel), true
}

// bump stamps the index with a fresh generation ID after a flatten.
func (idx *Index) bump() {
	idx.Generation = uuid.NewString()
}
