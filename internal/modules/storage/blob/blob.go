package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Kind tags which backend a Descriptor belongs to.
type Kind string

const (
	KindLocal  Kind = "local"
	KindRemote Kind = "remote"
)

// Descriptor locates a stored blob. Local descriptors carry a file name
// relative to the upload root; remote descriptors carry the durable URL
// returned at upload time plus the object id needed to delete it.
type Descriptor struct {
	Kind         Kind   `json:"kind"`
	Path         string `json:"path,omitempty"`
	URL          string `json:"url,omitempty"`
	PublicID     string `json:"public_id,omitempty"`
	ResourceType string `json:"resource_type,omitempty"`
}

// Local builds a local descriptor.
func Local(path string) Descriptor {
	return Descriptor{Kind: KindLocal, Path: path}
}

// Remote builds a remote descriptor.
func Remote(url, publicID, resourceType string) Descriptor {
	return Descriptor{Kind: KindRemote, URL: url, PublicID: publicID, ResourceType: resourceType}
}

var (
	ErrNotFound              = errors.New("blob not found")
	ErrUnsupportedDescriptor = errors.New("descriptor not handled by this backend")
	// ErrForeignDescriptor marks a remote blob held outside the configured
	// bucket, such as attachments from the previous hosted media service.
	ErrForeignDescriptor = errors.New("remote blob is held outside the configured bucket")
	ErrInvalidName           = errors.New("invalid blob name")
)

// Backend persists and removes uploaded blobs.
type Backend interface {
	Kind() Kind
	Store(ctx context.Context, body io.Reader, size int64, mimeType, originalName string) (Descriptor, error)
	Delete(ctx context.Context, d Descriptor) error
	Resolve(d Descriptor) string
}

// Router stores through a primary backend and dispatches Delete/Resolve on
// the descriptor kind, so records written before a storage migration stay
// reachable and deletable.
type Router struct {
	primary Backend
	byKind  map[Kind]Backend
}

func NewRouter(primary Backend, others ...Backend) *Router {
	r := &Router{primary: primary, byKind: map[Kind]Backend{primary.Kind(): primary}}
	for _, b := range others {
		if b == nil {
			continue
		}
		if _, exists := r.byKind[b.Kind()]; !exists {
			r.byKind[b.Kind()] = b
		}
	}
	return r
}

func (r *Router) Kind() Kind { return r.primary.Kind() }

func (r *Router) Store(ctx context.Context, body io.Reader, size int64, mimeType, originalName string) (Descriptor, error) {
	return r.primary.Store(ctx, body, size, mimeType, originalName)
}

func (r *Router) Delete(ctx context.Context, d Descriptor) error {
	b, ok := r.byKind[d.Kind]
	if !ok {
		if d.Kind == KindRemote {
			return fmt.Errorf("%w: %s", ErrForeignDescriptor, d.URL)
		}
		return fmt.Errorf("%w: %q", ErrUnsupportedDescriptor, d.Kind)
	}
	return b.Delete(ctx, d)
}

func (r *Router) Resolve(d Descriptor) string {
	if b, ok := r.byKind[d.Kind]; ok {
		return b.Resolve(d)
	}
	return d.URL
}

// Local returns the local backend if the router holds one.
func (r *Router) Local() (*LocalBackend, bool) {
	b, ok := r.byKind[KindLocal].(*LocalBackend)
	return b, ok
}
