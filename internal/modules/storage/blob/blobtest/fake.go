// Package blobtest provides an in-memory blob.Backend that records calls.
package blobtest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/vbg-space/core/internal/modules/storage/blob"
)

// Backend keeps blobs in memory. StoreErr makes the Nth Store call fail
// (1-based, 0 disables); DeleteErr makes every Delete fail.
type Backend struct {
	mu        sync.Mutex
	seq       int
	blobs     map[string][]byte
	Stored    []blob.Descriptor
	Deleted   []blob.Descriptor
	StoreErr  error
	FailOnNth int
	DeleteErr error
}

func New() *Backend {
	return &Backend{blobs: map[string][]byte{}}
}

func (b *Backend) Kind() blob.Kind { return blob.KindLocal }

func (b *Backend) Store(_ context.Context, body io.Reader, _ int64, _ string, _ string) (blob.Descriptor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	if b.StoreErr != nil && (b.FailOnNth == 0 || b.FailOnNth == b.seq) {
		return blob.Descriptor{}, b.StoreErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return blob.Descriptor{}, err
	}
	d := blob.Local(fmt.Sprintf("blob%03d.bin", b.seq))
	b.blobs[d.Path] = data
	b.Stored = append(b.Stored, d)
	return d, nil
}

func (b *Backend) Delete(_ context.Context, d blob.Descriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Deleted = append(b.Deleted, d)
	if b.DeleteErr != nil {
		return b.DeleteErr
	}
	delete(b.blobs, d.Path)
	return nil
}

func (b *Backend) Resolve(d blob.Descriptor) string {
	if d.URL != "" {
		return d.URL
	}
	return "/media/" + d.Path
}

// Live returns how many blobs are currently held.
func (b *Backend) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.blobs)
}

// Data returns a stored blob's content.
func (b *Backend) Data(path string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.blobs[path]
	return data, ok
}

// DeleteCalls returns how many Delete calls were made.
func (b *Backend) DeleteCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Deleted)
}
