package mongo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	documentBucket = "documents"
	gridFSPrefix   = "gridfs:"
)

// GridFSDocumentStore keeps verification documents in a GridFS bucket.
// Stored paths have the form gridfs:<file id>.
type GridFSDocumentStore struct {
	db *mongo.Database
}

func NewGridFSDocumentStore(db *mongo.Database) *GridFSDocumentStore {
	return &GridFSDocumentStore{db: db}
}

// bucket returns a fresh bucket per call; deadlines are bucket state.
func (s *GridFSDocumentStore) bucket(ctx context.Context) (*gridfs.Bucket, error) {
	b, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(documentBucket))
	if err != nil {
		return nil, err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultTimeout)
	}
	if err := b.SetWriteDeadline(deadline); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *GridFSDocumentStore) Save(ctx context.Context, originalName string, r io.Reader) (string, error) {
	b, err := s.bucket(ctx)
	if err != nil {
		return "", fmt.Errorf("open bucket: %w", err)
	}

	id, err := b.UploadFromStream(originalName, r)
	if err != nil {
		return "", fmt.Errorf("upload %q: %w", originalName, err)
	}
	return gridFSPrefix + id.Hex(), nil
}

func (s *GridFSDocumentStore) Remove(ctx context.Context, path string) error {
	oid, err := primitive.ObjectIDFromHex(strings.TrimPrefix(path, gridFSPrefix))
	if err != nil || !strings.HasPrefix(path, gridFSPrefix) {
		return fmt.Errorf("not a gridfs path: %q", path)
	}

	b, err := s.bucket(ctx)
	if err != nil {
		return fmt.Errorf("open bucket: %w", err)
	}
	if err := b.DeleteContext(ctx, oid); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}
