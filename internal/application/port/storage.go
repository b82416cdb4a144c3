package port

import (
	"context"
	"io"
)

// BlobInfo describes a stored blob
type BlobInfo struct {
	Ref      string            `json:"ref"`
	Name     string            `json:"name"`
	MimeType string            `json:"mime_type"`
	Size     int64             `json:"size"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// BlobStore keeps receipt files outside the relational store
type BlobStore interface {
	Put(ctx context.Context, content []byte, name, mimeType string, metadata map[string]string) (string, error)
	Get(ctx context.Context, ref string) (io.ReadCloser, *BlobInfo, error)
	Delete(ctx context.Context, ref string) error
}
