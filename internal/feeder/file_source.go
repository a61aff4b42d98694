package feeder

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileSource loads a fixed set of payload byte arrays from the regular
// files directly inside a directory, ordered by filename, and round-robins
// through them on every call to Next.
type FileSource struct {
	payloads [][]byte
	index    int
	mu       sync.Mutex
}

// NewFileSource reads every regular file directly inside dir as one
// payload, ordered by filename.
func NewFileSource(dir string) (*FileSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("feeder: read dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil, fmt.Errorf("feeder: no payload files found in %s", dir)
	}

	payloads := make([][]byte, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("feeder: read %s: %w", name, err)
		}
		payloads = append(payloads, data)
	}

	return &FileSource{payloads: payloads}, nil
}

// Next returns the next payload, wrapping back to the start once the end
// of the list is reached.
func (f *FileSource) Next() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.payloads[f.index]
	f.index = (f.index + 1) % len(f.payloads)
	return p, nil
}

func (f *FileSource) Close() error { return nil }

func (f *FileSource) Len() int { return len(f.payloads) }

// LoadAll reads every payload file in dir and returns them in filename
// order, ready to use as loadengine.Assignment.PayloadData.
func LoadAll(dir string) ([][]byte, error) {
	src, err := NewFileSource(dir)
	if err != nil {
		return nil, err
	}
	return src.payloads, nil
}
