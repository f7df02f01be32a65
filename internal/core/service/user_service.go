package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/smartrent/rental-api/internal/api/metrics"
	"github.com/smartrent/rental-api/internal/core/domain"
	"github.com/smartrent/rental-api/internal/core/ports"
)

// MaxDocumentsPerUpload bounds the number of files accepted in one request.
const MaxDocumentsPerUpload = 5

// sniffLen is how much of each file is read to detect its real type.
const sniffLen = 3072

var allowedDocumentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

type UserService struct {
	repo   ports.UserRepository
	store  ports.DocumentStore
	logger zerolog.Logger
}

func NewUserService(repo ports.UserRepository, store ports.DocumentStore, logger zerolog.Logger) *UserService {
	return &UserService{repo: repo, store: store, logger: logger}
}

func (s *UserService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.FindByID(ctx, userID)
}

// UploadDocuments stores verification documents for a landlord and resets the
// account to unverified. Every file is type-checked before any is written.
func (s *UserService) UploadDocuments(ctx context.Context, userID string, files []ports.DocumentFile) (*ports.UploadResult, error) {
	if len(files) == 0 {
		return nil, domain.NewValidationError("at least one document is required")
	}
	if len(files) > MaxDocumentsPerUpload {
		return nil, domain.NewValidationError("at most %d documents may be uploaded at once", MaxDocumentsPerUpload)
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != domain.RoleLandlord {
		return nil, domain.ErrForbidden
	}

	readers := make([]io.Reader, len(files))
	detected := make([]string, len(files))
	for i, f := range files {
		r, mime, err := checkDocument(f)
		if err != nil {
			return nil, err
		}
		readers[i] = r
		detected[i] = mime
	}

	stored := make([]string, 0, len(files))
	for i, f := range files {
		cr := &countingReader{r: readers[i]}
		path, err := s.store.Save(ctx, f.Filename, cr)
		if err != nil {
			s.discard(ctx, stored)
			return nil, fmt.Errorf("store document %q: %w", f.Filename, err)
		}
		stored = append(stored, path)
		metrics.DocumentsUploadedTotal.WithLabelValues(detected[i]).Inc()
		metrics.DocumentUploadBytes.Observe(float64(cr.n))
	}

	if err := s.repo.AppendDocuments(ctx, userID, stored); err != nil {
		s.discard(ctx, stored)
		return nil, err
	}

	s.logger.Info().
		Str("user_id", userID).
		Int("files", len(stored)).
		Msg("documents uploaded")

	return &ports.UploadResult{Files: stored}, nil
}

func (s *UserService) discard(ctx context.Context, paths []string) {
	for _, p := range paths {
		if err := s.store.Remove(ctx, p); err != nil {
			s.logger.Warn().Err(err).Str("path", p).Msg("failed to remove orphaned document")
		}
	}
}

// checkDocument verifies both the declared and the sniffed content type. The
// returned reader replays the sniffed prefix followed by the rest of the file.
func checkDocument(f ports.DocumentFile) (io.Reader, string, error) {
	declared := strings.ToLower(strings.TrimSpace(strings.SplitN(f.ContentType, ";", 2)[0]))
	if !allowedDocumentTypes[declared] {
		return nil, "", domain.NewValidationError("%s: only PDF, JPEG and PNG documents are accepted", f.Filename)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f.Content, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, "", fmt.Errorf("read document %q: %w", f.Filename, err)
	}
	head = head[:n]
	if n == 0 {
		return nil, "", domain.NewValidationError("%s: document is empty", f.Filename)
	}

	sniffed := mimetype.Detect(head)
	if !allowedDocumentTypes[sniffed.String()] {
		return nil, "", domain.NewValidationError("%s: content does not match an accepted document type", f.Filename)
	}

	return io.MultiReader(bytes.NewReader(head), f.Content), sniffed.String(), nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
