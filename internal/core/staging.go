package core

// staging.go copies uploaded exports to the staging directory.
//
// Uploads are written under a generated name, never the client's file
// name, so concurrent uploads of the same file cannot overwrite each other
// and a crafted name cannot escape the directory. The copy is size-capped
// while it streams.

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// sizeCappedReader fails with ErrFileTooLarge once more than limit bytes
// have been read.
type sizeCappedReader struct {
	r     io.Reader
	limit int64
	read  int64
}

func newSizeCappedReader(r io.Reader, limit int64) *sizeCappedReader {
	return &sizeCappedReader{r: r, limit: limit}
}

// Read implements io.Reader.
func (c *sizeCappedReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += int64(n)
	if c.limit > 0 && c.read > c.limit {
		return n, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, c.limit)
	}
	return n, err
}

// BytesRead returns how many bytes passed through the reader.
func (c *sizeCappedReader) BytesRead() int64 {
	return c.read
}

// stageUpload writes src to dir/<id>.txt and returns the path and size.
// A partially written file is removed on error.
func stageUpload(dir, id string, src io.Reader, limit int64) (string, int64, error) {
	path := filepath.Join(dir, id+".txt")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", 0, fmt.Errorf("stage upload: %w", err)
	}

	cr := newSizeCappedReader(src, limit)
	if _, err := io.Copy(f, cr); err != nil {
		f.Close()
		os.Remove(path)
		return "", 0, fmt.Errorf("stage upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("stage upload: %w", err)
	}
	return path, cr.BytesRead(), nil
}

// readCapped reads all of src, failing once limit is exceeded.
func readCapped(src io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(newSizeCappedReader(src, limit))
	if err != nil {
		return nil, err
	}
	return data, nil
}
