// Package resource reads NFT content and metadata from a local directory.
//
// For local id n with content type "image/png" the content is n.png and
// the optional metadata is n.json.
package resource

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultContentType is used when a mint does not name one.
const DefaultContentType = "image/png"

// ErrResourceMissing is returned when the content file of a local id does
// not exist.
var ErrResourceMissing = errors.New("resource missing")

// ErrBadMetadata is returned for a metadata file that is not a JSON object.
var ErrBadMetadata = errors.New("malformed metadata")

// DirStore serves resources from a directory.
type DirStore struct {
	dir string
}

// NewDirStore returns a store rooted at dir.
func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

// Dir returns the store's directory.
func (s *DirStore) Dir() string { return s.dir }

// Extension returns the file extension for a content type: its MIME
// subtype.
func Extension(contentType string) (string, error) {
	_, sub, ok := strings.Cut(contentType, "/")
	sub, _, _ = strings.Cut(sub, ";")
	sub = strings.TrimSpace(sub)
	if !ok || sub == "" || strings.ContainsAny(sub, `/\`) {
		return "", fmt.Errorf("invalid content type %q", contentType)
	}
	return sub, nil
}

// Path returns the content file path of localID.
func (s *DirStore) Path(localID uint64, contentType string) (string, error) {
	ext, err := Extension(contentType)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, strconv.FormatUint(localID, 10)+"."+ext), nil
}

// Body returns the content of localID.
func (s *DirStore) Body(localID uint64, contentType string) ([]byte, error) {
	path, err := s.Path(localID, contentType)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrResourceMissing, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read resource: %w", err)
	}
	return b, nil
}

// Metadata returns the metadata of localID. It always carries localId;
// fields from n.json are layered on top. A missing file is not an error;
// one that cannot be parsed is, so a mint never drops its overrides.
func (s *DirStore) Metadata(localID uint64) (*Metadata, error) {
	path := filepath.Join(s.dir, strconv.FormatUint(localID, 10)+".json")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Metadata{LocalID: localID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	var parsed Metadata
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadMetadata, path, err)
	}
	if !parsed.hasLocalID {
		parsed.LocalID = localID
	}
	return &parsed, nil
}
