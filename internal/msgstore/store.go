// Package msgstore archives the rendered content of dispatched emails.
package msgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sungwon/email-dispatch/internal/delivery"
)

// ErrNotFound is returned when a requested object does not exist.
var ErrNotFound = errors.New("msgstore: content not found")

// ErrInvalidID is returned for keys that are not record identifiers.
var ErrInvalidID = errors.New("msgstore: invalid record id")

// BlobStore is a flat key/value object store.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Config holds configuration for creating an Archive.
type Config struct {
	Type       string // "", "local" or "s3"; empty disables archiving
	Path       string // base directory for local store
	S3Bucket   string
	S3Prefix   string
	S3Endpoint string
	S3Region   string
}

// New creates an Archive for the configured backend. It returns nil, nil
// when archiving is disabled.
func New(ctx context.Context, cfg Config) (*Archive, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "local":
		fs, err := NewLocalFileStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return NewArchive(fs), nil
	case "s3":
		s3s, err := NewS3StoreFromConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewArchive(s3s), nil
	default:
		return nil, fmt.Errorf("msgstore: unsupported archive type %q", cfg.Type)
	}
}

// Archive stores delivery.Content as JSON keyed by record id.
type Archive struct {
	blobs BlobStore
}

func NewArchive(blobs BlobStore) *Archive {
	return &Archive{blobs: blobs}
}

func objectKey(recordID string) (string, error) {
	if _, err := uuid.Parse(recordID); err != nil {
		return "", ErrInvalidID
	}
	return recordID + ".json", nil
}

// Save implements delivery.Archiver.
func (a *Archive) Save(ctx context.Context, c *delivery.Content) error {
	key, err := objectKey(c.RecordID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("msgstore: marshal content: %w", err)
	}
	return a.blobs.Put(ctx, key, data)
}

// Load returns the archived content for recordID.
func (a *Archive) Load(ctx context.Context, recordID string) (*delivery.Content, error) {
	key, err := objectKey(recordID)
	if err != nil {
		return nil, err
	}
	data, err := a.blobs.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var c delivery.Content
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("msgstore: decode content: %w", err)
	}
	return &c, nil
}
