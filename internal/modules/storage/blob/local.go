package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultMediaPrefix is the URL prefix local blobs are served under.
const DefaultMediaPrefix = "/media"

// LocalBackend writes blobs into a single flat directory.
type LocalBackend struct {
	root   string
	prefix string
}

func NewLocalBackend(root, urlPrefix string) (*LocalBackend, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("local storage directory is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if urlPrefix = strings.TrimRight(strings.TrimSpace(urlPrefix), "/"); urlPrefix == "" {
		urlPrefix = DefaultMediaPrefix
	}
	return &LocalBackend{root: abs, prefix: urlPrefix}, nil
}

func (b *LocalBackend) Kind() Kind { return KindLocal }

// Root returns the absolute upload directory.
func (b *LocalBackend) Root() string { return b.root }

func (b *LocalBackend) Store(ctx context.Context, body io.Reader, size int64, _ string, originalName string) (Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return Descriptor{}, err
	}
	name := randomName(originalName)
	full, err := b.join(name)
	if err != nil {
		return Descriptor{}, err
	}

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return Descriptor{}, fmt.Errorf("create blob: %w", err)
	}
	src := body
	if size >= 0 {
		src = io.LimitReader(body, size)
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return Descriptor{}, fmt.Errorf("write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(full)
		return Descriptor{}, fmt.Errorf("close blob: %w", err)
	}
	return Local(name), nil
}

func (b *LocalBackend) Delete(_ context.Context, d Descriptor) error {
	if d.Kind != KindLocal {
		return fmt.Errorf("%w: %q", ErrUnsupportedDescriptor, d.Kind)
	}
	return b.DeleteName(d.Path)
}

// DeleteName removes a blob by file name. Missing files are not an error.
func (b *LocalBackend) DeleteName(name string) error {
	full, err := b.join(name)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

func (b *LocalBackend) Resolve(d Descriptor) string {
	name := SafeName(d.Path)
	if name == "" {
		return ""
	}
	return b.prefix + "/" + name
}

// Open returns the named blob for streaming.
func (b *LocalBackend) Open(name string) (*os.File, fs.FileInfo, error) {
	full, err := b.join(name)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, nil, ErrNotFound
	}
	return f, info, nil
}

// Entry is a stored file seen by List.
type Entry struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// List returns regular files in the upload directory last modified before cutoff.
func (b *LocalBackend) List(cutoff time.Time) ([]Entry, error) {
	items, err := os.ReadDir(b.root)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(items))
	for _, item := range items {
		if !item.Type().IsRegular() || SafeName(item.Name()) == "" {
			continue
		}
		info, err := item.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		out = append(out, Entry{Name: item.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	return out, nil
}

// join resolves name under root, rejecting anything that is not a plain
// safe file name.
func (b *LocalBackend) join(name string) (string, error) {
	if strings.TrimSpace(name) != filepath.Base(strings.TrimSpace(name)) {
		return "", ErrInvalidName
	}
	safe := SafeName(name)
	if safe == "" {
		return "", ErrInvalidName
	}
	full := filepath.Join(b.root, safe)
	rel, err := filepath.Rel(b.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrInvalidName
	}
	return full, nil
}
