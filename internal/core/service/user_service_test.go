package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/smartrent/rental-api/internal/core/domain"
	"github.com/smartrent/rental-api/internal/core/ports"
)

type stubDocumentStore struct {
	files   map[string][]byte
	failOn  int // 1-based Save call that fails, 0 = never
	saves   int
	removed []string
}

func newStubDocumentStore() *stubDocumentStore {
	return &stubDocumentStore{files: make(map[string][]byte)}
}

func (s *stubDocumentStore) Save(_ context.Context, name string, r io.Reader) (string, error) {
	s.saves++
	if s.saves == s.failOn {
		return "", errors.New("disk full")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	path := fmt.Sprintf("uploads/%d-%s", s.saves, name)
	s.files[path] = data
	return path, nil
}

func (s *stubDocumentStore) Remove(_ context.Context, path string) error {
	delete(s.files, path)
	s.removed = append(s.removed, path)
	return nil
}

var (
	pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 17)...)
)

func pdfDoc(name string) ports.DocumentFile {
	return ports.DocumentFile{Filename: name, ContentType: "application/pdf", Content: bytes.NewReader(pdfBytes)}
}

func seedUser(t *testing.T, repo *stubUserRepo, role string) string {
	t.Helper()
	u, err := repo.Create(context.Background(), &domain.User{Name: "Lena", Email: role + "@example.com", Role: role, IsVerified: true})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u.ID
}

func TestUserService_UploadDocuments_Success(t *testing.T) {
	repo := newStubUserRepo()
	store := newStubDocumentStore()
	svc := NewUserService(repo, store, zerolog.Nop())
	id := seedUser(t, repo, domain.RoleLandlord)

	files := []ports.DocumentFile{
		pdfDoc("id.pdf"),
		{Filename: "scan.png", ContentType: "image/png", Content: bytes.NewReader(pngBytes)},
	}
	res, err := svc.UploadDocuments(context.Background(), id, files)
	if err != nil {
		t.Fatalf("UploadDocuments returned error: %v", err)
	}
	if len(res.Files) != 2 {
		t.Fatalf("expected 2 stored files, got %v", res.Files)
	}
	if got := store.files[res.Files[0]]; !bytes.Equal(got, pdfBytes) {
		t.Fatalf("stored content differs from upload")
	}

	u, _ := repo.FindByID(context.Background(), id)
	if len(u.Documents) != 2 {
		t.Fatalf("expected documents appended, got %v", u.Documents)
	}
	if u.IsVerified {
		t.Fatalf("upload must reset verification")
	}
}

func TestUserService_UploadDocuments_Count(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewUserService(repo, newStubDocumentStore(), zerolog.Nop())
	id := seedUser(t, repo, domain.RoleLandlord)

	if _, err := svc.UploadDocuments(context.Background(), id, nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for zero files, got %v", err)
	}

	six := make([]ports.DocumentFile, MaxDocumentsPerUpload+1)
	for i := range six {
		six[i] = pdfDoc(fmt.Sprintf("%d.pdf", i))
	}
	if _, err := svc.UploadDocuments(context.Background(), id, six); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for too many files, got %v", err)
	}
}

func TestUserService_UploadDocuments_RejectsBeforeStoring(t *testing.T) {
	cases := map[string]ports.DocumentFile{
		"declared type": {Filename: "a.txt", ContentType: "text/plain", Content: strings.NewReader("hello")},
		"spoofed type":  {Filename: "a.pdf", ContentType: "application/pdf", Content: strings.NewReader("just text, not a pdf")},
		"empty file":    {Filename: "a.pdf", ContentType: "application/pdf", Content: strings.NewReader("")},
	}
	for name, bad := range cases {
		t.Run(name, func(t *testing.T) {
			repo := newStubUserRepo()
			store := newStubDocumentStore()
			svc := NewUserService(repo, store, zerolog.Nop())
			id := seedUser(t, repo, domain.RoleLandlord)

			_, err := svc.UploadDocuments(context.Background(), id, []ports.DocumentFile{pdfDoc("ok.pdf"), bad})
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if store.saves != 0 {
				t.Fatalf("expected nothing stored, got %d saves", store.saves)
			}
		})
	}
}

func TestUserService_UploadDocuments_RoleFromStore(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewUserService(repo, newStubDocumentStore(), zerolog.Nop())
	id := seedUser(t, repo, domain.RoleUser)

	if _, err := svc.UploadDocuments(context.Background(), id, []ports.DocumentFile{pdfDoc("a.pdf")}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.UploadDocuments(context.Background(), "missing", []ports.DocumentFile{pdfDoc("a.pdf")}); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_UploadDocuments_CleansUpOnFailure(t *testing.T) {
	repo := newStubUserRepo()
	store := newStubDocumentStore()
	store.failOn = 2
	svc := NewUserService(repo, store, zerolog.Nop())
	id := seedUser(t, repo, domain.RoleLandlord)

	_, err := svc.UploadDocuments(context.Background(), id, []ports.DocumentFile{pdfDoc("a.pdf"), pdfDoc("b.pdf")})
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(store.files) != 0 || len(store.removed) != 1 {
		t.Fatalf("expected first file removed, files=%v removed=%v", store.files, store.removed)
	}
	u, _ := repo.FindByID(context.Background(), id)
	if len(u.Documents) != 0 || !u.IsVerified {
		t.Fatalf("user must be untouched on failure: %+v", u)
	}
}

func TestUserService_UploadDocuments_CleansUpWhenUserUpdateFails(t *testing.T) {
	repo := newStubUserRepo()
	store := newStubDocumentStore()
	svc := NewUserService(repo, store, zerolog.Nop())
	id := seedUser(t, repo, domain.RoleLandlord)
	repo.appendErr = errors.New("write conflict")

	if _, err := svc.UploadDocuments(context.Background(), id, []ports.DocumentFile{pdfDoc("a.pdf")}); err == nil {
		t.Fatalf("expected error")
	}
	if len(store.files) != 0 {
		t.Fatalf("expected stored files removed, got %v", store.files)
	}
}

func TestUserService_Profile(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewUserService(repo, newStubDocumentStore(), zerolog.Nop())
	id := seedUser(t, repo, domain.RoleUser)

	u, err := svc.Profile(context.Background(), id)
	if err != nil || u.ID != id {
		t.Fatalf("unexpected profile %+v, err %v", u, err)
	}
}
