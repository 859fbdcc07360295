// Package fstool exposes file reading and writing as chainy capabilities.
package fstool

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/skosovsky/chainy"
)

const filePerm = 0o644

// ReadArgs are the arguments of read_file.
type ReadArgs struct {
	PathToFile string `json:"path_to_file"`
}

// WriteArgs are the arguments of write_file.
type WriteArgs struct {
	PathToFile string `json:"path_to_file"`
	Content    string `json:"content"`
}

// Tools reads and writes files on one filesystem.
type Tools struct {
	fs    afero.Fs
	read  *chainy.Capability
	write *chainy.Capability

	mu          sync.Mutex
	lastWritten string
}

// Option configures Tools.
type Option func(*Tools)

// WithRoot confines every path to dir.
func WithRoot(dir string) Option {
	return func(t *Tools) {
		if dir != "" {
			t.fs = afero.NewBasePathFs(t.fs, dir)
		}
	}
}

// New creates file tools over fs (afero.NewOsFs() for the real disk).
func New(fs afero.Fs, opts ...Option) (*Tools, error) {
	t := &Tools{fs: fs}
	for _, opt := range opts {
		opt(t)
	}
	var err error
	t.read, err = chainy.FromFunc("read_file", "Reads the content of a file.", t.readFile)
	if err != nil {
		return nil, err
	}
	t.write, err = chainy.FromFunc("write_file", "Writes content to a file.", t.writeFile)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ReadFile returns the read_file capability.
func (t *Tools) ReadFile() *chainy.Capability { return t.read }

// WriteFile returns the write_file capability.
func (t *Tools) WriteFile() *chainy.Capability { return t.write }

// Capabilities returns read_file and write_file.
func (t *Tools) Capabilities() []*chainy.Capability {
	return []*chainy.Capability{t.read, t.write}
}

// LastWritten returns the path of the latest successful write_file call, or "".
func (t *Tools) LastWritten() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastWritten
}

// Read returns the content of path as read_file would.
func (t *Tools) Read(path string) (string, error) {
	data, err := afero.ReadFile(t.fs, path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (t *Tools) readFile(_ context.Context, args ReadArgs) (string, error) {
	return t.Read(args.PathToFile)
}

// writeFile replaces the file through a temp file in the same directory so
// readers never observe partial content.
func (t *Tools) writeFile(_ context.Context, args WriteArgs) (string, error) {
	dir := filepath.Dir(args.PathToFile)
	tmp, err := afero.TempFile(t.fs, dir, "."+filepath.Base(args.PathToFile)+".tmp-")
	if err != nil {
		return "", err
	}
	name := tmp.Name()
	if _, err := tmp.WriteString(args.Content); err != nil {
		_ = tmp.Close()
		_ = t.fs.Remove(name)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = t.fs.Remove(name)
		return "", err
	}
	if err := t.fs.Chmod(name, filePerm); err != nil {
		_ = t.fs.Remove(name)
		return "", err
	}
	if err := t.fs.Rename(name, args.PathToFile); err != nil {
		_ = t.fs.Remove(name)
		return "", err
	}
	t.mu.Lock()
	t.lastWritten = args.PathToFile
	t.mu.Unlock()
	return fmt.Sprintf("content written to %s", args.PathToFile), nil
}
