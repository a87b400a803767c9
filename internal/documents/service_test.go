package documents

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawtagapp/pawtag-backend/pkg/config"
	"github.com/pawtagapp/pawtag-backend/pkg/db/models"
	pkgerrors "github.com/pawtagapp/pawtag-backend/pkg/errors"
)

type stubDocRepo struct {
	docs map[uuid.UUID]*models.Document
}

func newStubDocRepo() *stubDocRepo {
	return &stubDocRepo{docs: map[uuid.UUID]*models.Document{}}
}

func (s *stubDocRepo) Create(_ context.Context, doc *models.Document) (*models.Document, error) {
	doc.ID = uuid.New()
	doc.CreatedAt = time.Now()
	s.docs[doc.ID] = doc
	return doc, nil
}

func (s *stubDocRepo) FindForOwner(_ context.Context, id, ownerID uuid.UUID) (*models.Document, error) {
	doc, ok := s.docs[id]
	if !ok || doc.OwnerID != ownerID {
		return nil, gorm.ErrRecordNotFound
	}
	return doc, nil
}

func (s *stubDocRepo) ListByPet(_ context.Context, petID, ownerID uuid.UUID) ([]models.Document, error) {
	var out []models.Document
	for _, doc := range s.docs {
		if doc.PetID == petID && doc.OwnerID == ownerID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (s *stubDocRepo) DeleteForOwner(_ context.Context, id, ownerID uuid.UUID) (int64, error) {
	doc, ok := s.docs[id]
	if !ok || doc.OwnerID != ownerID {
		return 0, nil
	}
	delete(s.docs, id)
	return 1, nil
}

type stubPetChecker struct {
	pets map[uuid.UUID]uuid.UUID // pet id -> owner id
}

func (s *stubPetChecker) FindForOwner(_ context.Context, id, ownerID uuid.UUID) (*models.Pet, error) {
	owner, ok := s.pets[id]
	if !ok || owner != ownerID {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.Pet{ID: id, OwnerID: owner}, nil
}

type stubBlobStore struct {
	signedObjects  []string
	deletedObjects []string
}

func (s *stubBlobStore) SignedURL(_, object, _ string, _ time.Duration) (string, error) {
	s.signedObjects = append(s.signedObjects, object)
	return "https://storage.googleapis.com/bucket/" + object + "?sig=put", nil
}

func (s *stubBlobStore) SignedReadURL(_, object string, _ time.Duration) (string, error) {
	return "https://storage.googleapis.com/bucket/" + object + "?sig=get", nil
}

func (s *stubBlobStore) DeleteObject(_ context.Context, _, object string) error {
	s.deletedObjects = append(s.deletedObjects, object)
	return nil
}

func fixture(t *testing.T) (Service, *stubDocRepo, *stubBlobStore, uuid.UUID, uuid.UUID) {
	t.Helper()

	ownerID := uuid.New()
	petID := uuid.New()
	repo := newStubDocRepo()
	blobs := &stubBlobStore{}
	pets := &stubPetChecker{pets: map[uuid.UUID]uuid.UUID{petID: ownerID}}

	svc, err := NewService(repo, pets, blobs, "bucket",
		config.GCSConfig{BucketName: "bucket", UploadURLExpiry: 15 * time.Minute, DownloadURLExpiry: 10 * time.Minute},
		config.DocumentsConfig{MaxUploadMB: 20}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, repo, blobs, ownerID, petID
}

func TestRequestUploadGrantsPresignedURL(t *testing.T) {
	svc, repo, _, ownerID, petID := fixture(t)

	grant, err := svc.RequestUpload(context.Background(), ownerID, petID, UploadInput{
		FileName:    "Vaccination Card.PDF",
		ContentType: "application/pdf",
		SizeBytes:   1 << 20,
	})
	if err != nil {
		t.Fatalf("request upload: %v", err)
	}

	if !strings.Contains(grant.UploadURL, "sig=put") {
		t.Fatalf("expected presigned url, got %q", grant.UploadURL)
	}
	if grant.Document.FileName != "vaccination_card.pdf" {
		t.Fatalf("expected sanitized file name, got %q", grant.Document.FileName)
	}
	if len(repo.docs) != 1 {
		t.Fatalf("expected one metadata row, got %d", len(repo.docs))
	}
	stored := repo.docs[grant.Document.ID]
	if !strings.HasPrefix(stored.ObjectPath, "documents/"+petID.String()+"/") {
		t.Fatalf("unexpected object path %q", stored.ObjectPath)
	}
}

func TestRequestUploadRejectsForeignPet(t *testing.T) {
	svc, _, _, _, petID := fixture(t)

	_, err := svc.RequestUpload(context.Background(), uuid.New(), petID, UploadInput{
		FileName:    "file.pdf",
		ContentType: "application/pdf",
		SizeBytes:   100,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign pet, got %v", err)
	}
}

func TestRequestUploadRejectsBadInput(t *testing.T) {
	svc, _, _, ownerID, petID := fixture(t)

	cases := []struct {
		name  string
		input UploadInput
	}{
		{"disallowed type", UploadInput{FileName: "x.exe", ContentType: "application/x-msdownload", SizeBytes: 100}},
		{"zero size", UploadInput{FileName: "x.pdf", ContentType: "application/pdf", SizeBytes: 0}},
		{"oversized", UploadInput{FileName: "x.pdf", ContentType: "application/pdf", SizeBytes: 21 << 20}},
		{"no name", UploadInput{FileName: "   ", ContentType: "application/pdf", SizeBytes: 100}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RequestUpload(context.Background(), ownerID, petID, tc.input)
			appErr := pkgerrors.As(err)
			if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestDownloadURLScopedToOwner(t *testing.T) {
	svc, _, _, ownerID, petID := fixture(t)

	grant, err := svc.RequestUpload(context.Background(), ownerID, petID, UploadInput{
		FileName:    "photo.png",
		ContentType: "image/png",
		SizeBytes:   2048,
	})
	if err != nil {
		t.Fatalf("request upload: %v", err)
	}

	url, err := svc.DownloadURL(context.Background(), ownerID, grant.Document.ID)
	if err != nil {
		t.Fatalf("download url: %v", err)
	}
	if !strings.Contains(url, "sig=get") {
		t.Fatalf("expected read url, got %q", url)
	}

	_, err = svc.DownloadURL(context.Background(), uuid.New(), grant.Document.ID)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign owner, got %v", err)
	}
}

func TestDeleteRemovesRowAndBlob(t *testing.T) {
	svc, repo, blobs, ownerID, petID := fixture(t)

	grant, err := svc.RequestUpload(context.Background(), ownerID, petID, UploadInput{
		FileName:    "papers.pdf",
		ContentType: "application/pdf",
		SizeBytes:   4096,
	})
	if err != nil {
		t.Fatalf("request upload: %v", err)
	}

	if err := svc.Delete(context.Background(), ownerID, grant.Document.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(repo.docs) != 0 {
		t.Fatalf("expected metadata row removed, got %d", len(repo.docs))
	}
	if len(blobs.deletedObjects) != 1 {
		t.Fatalf("expected blob delete, got %v", blobs.deletedObjects)
	}
}
