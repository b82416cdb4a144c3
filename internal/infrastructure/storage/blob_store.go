package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/application/port"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrBlobNotFound is returned by Get for an unknown reference
var ErrBlobNotFound = errors.New("blob not found")

const (
	contentSuffix = ".blob"
	infoSuffix    = ".json"
)

// LocalBlobStore implements port.BlobStore on the local filesystem. Each blob
// is a content file plus a JSON sidecar holding its BlobInfo, sharded by the
// first two characters of the reference.
type LocalBlobStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalBlobStore creates a new LocalBlobStore rooted at baseDir
func NewLocalBlobStore(baseDir string, logger *zap.Logger) (*LocalBlobStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &LocalBlobStore{
		baseDir: baseDir,
		logger:  logger,
	}, nil
}

// Put writes the content and its description and returns a new reference
func (s *LocalBlobStore) Put(ctx context.Context, content []byte, name, mimeType string, metadata map[string]string) (string, error) {
	ref := uuid.NewString()
	base, err := s.basePath(ref)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		return "", fmt.Errorf("failed to create shard directory: %w", err)
	}

	info := port.BlobInfo{
		Ref:      ref,
		Name:     filepath.Base(name),
		MimeType: mimeType,
		Size:     int64(len(content)),
		Metadata: metadata,
	}
	encoded, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("failed to encode blob info: %w", err)
	}

	if err := os.WriteFile(base+contentSuffix, content, 0o644); err != nil {
		s.logger.Error("Failed to write blob", zap.String("ref", ref), zap.Error(err))
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	if err := os.WriteFile(base+infoSuffix, encoded, 0o644); err != nil {
		_ = os.Remove(base + contentSuffix)
		s.logger.Error("Failed to write blob info", zap.String("ref", ref), zap.Error(err))
		return "", fmt.Errorf("failed to write blob info: %w", err)
	}

	s.logger.Debug("Blob stored", zap.String("ref", ref), zap.Int("size", len(content)))
	return ref, nil
}

// Get opens the blob content. The caller closes the reader.
func (s *LocalBlobStore) Get(ctx context.Context, ref string) (io.ReadCloser, *port.BlobInfo, error) {
	base, err := s.basePath(ref)
	if err != nil {
		return nil, nil, err
	}

	encoded, err := os.ReadFile(base + infoSuffix)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: %s", ErrBlobNotFound, ref)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read blob info: %w", err)
	}

	var info port.BlobInfo
	if err := json.Unmarshal(encoded, &info); err != nil {
		return nil, nil, fmt.Errorf("failed to decode blob info: %w", err)
	}

	f, err := os.Open(base + contentSuffix)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: %s", ErrBlobNotFound, ref)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open blob: %w", err)
	}

	return f, &info, nil
}

// Delete removes the blob. Deleting an unknown reference succeeds.
func (s *LocalBlobStore) Delete(ctx context.Context, ref string) error {
	base, err := s.basePath(ref)
	if err != nil {
		return err
	}

	for _, path := range []string{base + contentSuffix, base + infoSuffix} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Error("Failed to delete blob file", zap.String("path", path), zap.Error(err))
			return fmt.Errorf("failed to delete blob: %w", err)
		}
	}

	s.logger.Debug("Blob deleted", zap.String("ref", ref))
	return nil
}

// basePath maps a reference to its path without suffix. Only references
// issued by Put are accepted.
func (s *LocalBlobStore) basePath(ref string) (string, error) {
	if parsed, err := uuid.Parse(ref); err != nil || parsed.String() != ref {
		return "", fmt.Errorf("invalid blob reference %q", ref)
	}

	fullPath := filepath.Join(s.baseDir, ref[:2], ref)
	if err := s.validatePath(fullPath); err != nil {
		return "", err
	}
	return fullPath, nil
}

// validatePath checks that the path stays within baseDir
func (s *LocalBlobStore) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}
	return nil
}

var _ port.BlobStore = (*LocalBlobStore)(nil)
