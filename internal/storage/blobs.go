// Package storage keeps uploaded case documents.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Open for unknown keys.
var ErrNotFound = errors.New("blob not found")

// Blobs stores opaque document bytes under generated keys.
type Blobs interface {
	Put(ctx context.Context, name string, r io.Reader) (key string, size int64, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Disk stores blobs as files below Root.  Keys are a uuid plus the
// original file extension and never contain path separators.
type Disk struct {
	Root    string
	MaxSize int64
}

// NewDisk creates root if needed.
func NewDisk(root string, maxSize int64) (*Disk, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, err
	}
	return &Disk{Root: root, MaxSize: maxSize}, nil
}

func (d *Disk) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(d.Root, key), nil
}

// Put copies r to a new file.  Uploads larger than MaxSize are rejected
// and leave nothing behind.
func (d *Disk) Put(_ context.Context, name string, r io.Reader) (string, int64, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) > 10 {
		ext = ""
	}
	key := uuid.NewString() + ext
	p, _ := d.path(key)
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", 0, err
	}
	src := r
	if d.MaxSize > 0 {
		src = io.LimitReader(r, d.MaxSize+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && d.MaxSize > 0 && n > d.MaxSize {
		err = fmt.Errorf("document exceeds %d bytes", d.MaxSize)
	}
	if err != nil {
		_ = os.Remove(p)
		return "", 0, err
	}
	return key, n, nil
}

func (d *Disk) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := d.path(key)
	if err != nil {
		return nil, ErrNotFound
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

func (d *Disk) Delete(_ context.Context, key string) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
