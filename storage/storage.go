package storage

import (
	"context"
	"errors"
	"io"
)

/*
Storage providers hold the objects that tables are scanned from. Object IDs are
slash-separated paths; a table is the set of objects sharing a prefix.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrObjectNotFound is returned when an object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo describes a stored object. Version changes whenever the object is
// replaced.
type ObjectInfo struct {
	Size    int64
	Version string
}

// Provider is the interface for object storage.
type Provider interface {
	Put(ctx context.Context, id string, data []byte) error
	Get(ctx context.Context, id string) (io.ReadCloser, error)
	Stat(ctx context.Context, id string) (ObjectInfo, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, id string) error
	String() string
}
