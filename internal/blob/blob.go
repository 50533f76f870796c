// Package blob is a thin S3-like object store used by the document backend
// to hold its single JSON document.
//
// Semantics mirror the subset of S3 the document backend needs: a Put
// replaces the whole object, a Get returns it or ErrNotFound. The
// filesystem driver is the default; s3 talks to AWS S3 or MinIO; memory is
// for tests.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aanand-mishra/school-records/internal/config"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // local filesystem (default, dev)
	DriverS3         Driver = "s3"     // S3 / MinIO compatible
	DriverMemory     Driver = "memory" // in-memory (tests)
)

// ErrNotFound is returned by Get when no object exists at key.
var ErrNotFound = errors.New("blob: not found")

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string
}

// Store is the interface every blob driver satisfies.
type Store interface {
	// Put writes r to key, replacing any existing object. A failed Put
	// leaves the previous object in place.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) error
	// Get returns the object's contents. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Driver() Driver
}

// Open selects a Store implementation from cfg.
func Open(ctx context.Context, cfg config.Blob) (Store, error) {
	switch Driver(cfg.Driver) {
	case DriverFilesystem, "":
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}

// ReadAll fetches the whole object at key.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	rc, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
