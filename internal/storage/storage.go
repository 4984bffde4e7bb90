// Package storage abstracts the blob store that holds uploaded request
// documents. The portal only needs two primitives: put bytes under a key and
// derive a public URL for a stored key. The production deployment fronts an
// object store; LocalStore keeps the same contract on local disk for
// single-node setups and tests.
package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Store is the put/get-by-key contract the request service depends on.
type Store interface {
	// Put streams r into the store under key and returns the stored key.
	Put(ctx context.Context, key string, contentType string, r io.Reader) (string, error)
	// PublicURL returns a URL under which the stored key can be fetched.
	PublicURL(key string) string
}

// ErrInvalidKey is returned when a storage key would escape the store root.
var ErrInvalidKey = errors.New("storage: invalid key")

// LocalStore persists blobs beneath a root directory and serves them from a
// configured base URL. Keys are slash-separated relative paths
// (e.g. "anonymous_171.../req-id/document_0.pdf").
type LocalStore struct {
	// Root is the directory blobs are written under.
	Root string
	// BaseURL prefixes public URLs, e.g. "http://localhost:8080/files".
	BaseURL string
}

// NewLocalStore creates the root directory if needed and returns the store.
func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("storage: root must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Put writes r to disk under key, creating parent directories as needed.
// The write honors context cancellation between the directory creation and
// the copy, but an in-flight copy is not interrupted.
func (s *LocalStore) Put(ctx context.Context, key string, _ string, r io.Reader) (string, error) {
	clean, err := s.cleanKey(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst := filepath.Join(s.Root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return clean, nil
}

// PublicURL joins the base URL with the escaped key.
func (s *LocalStore) PublicURL(key string) string {
	clean, err := s.cleanKey(key)
	if err != nil {
		return ""
	}
	segs := strings.Split(clean, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return s.BaseURL + "/" + strings.Join(segs, "/")
}

// cleanKey normalizes key and rejects anything that would traverse outside
// the store root.
func (s *LocalStore) cleanKey(key string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidKey
	}
	return clean, nil
}
