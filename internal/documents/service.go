package documents

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawtagapp/pawtag-backend/pkg/config"
	"github.com/pawtagapp/pawtag-backend/pkg/db/models"
	pkgerrors "github.com/pawtagapp/pawtag-backend/pkg/errors"
	"github.com/pawtagapp/pawtag-backend/pkg/logger"
)

type documentRepository interface {
	Create(ctx context.Context, doc *models.Document) (*models.Document, error)
	FindForOwner(ctx context.Context, id, ownerID uuid.UUID) (*models.Document, error)
	ListByPet(ctx context.Context, petID, ownerID uuid.UUID) ([]models.Document, error)
	DeleteForOwner(ctx context.Context, id, ownerID uuid.UUID) (int64, error)
}

type petChecker interface {
	FindForOwner(ctx context.Context, id, ownerID uuid.UUID) (*models.Pet, error)
}

type blobStore interface {
	SignedURL(bucket, object, contentType string, expires time.Duration) (string, error)
	SignedReadURL(bucket, object string, expires time.Duration) (string, error)
	DeleteObject(ctx context.Context, bucket, object string) error
}

// Service manages pet document metadata and the presigned URLs for the
// actual bytes.
type Service interface {
	RequestUpload(ctx context.Context, ownerID, petID uuid.UUID, input UploadInput) (*UploadGrantDTO, error)
	ListForPet(ctx context.Context, ownerID, petID uuid.UUID) ([]DocumentDTO, error)
	DownloadURL(ctx context.Context, ownerID, docID uuid.UUID) (string, error)
	Delete(ctx context.Context, ownerID, docID uuid.UUID) error
}

// UploadInput describes the file an owner wants to attach.
type UploadInput struct {
	FileName    string
	ContentType string
	SizeBytes   int64
}

// UploadGrantDTO hands back the stored metadata plus the presigned PUT URL.
type UploadGrantDTO struct {
	Document  DocumentDTO `json:"document"`
	UploadURL string      `json:"upload_url"`
	ExpiresIn int64       `json:"expires_in_seconds"`
}

// DocumentDTO is the owner-facing document shape. The object path stays
// internal; clients only ever see presigned URLs.
type DocumentDTO struct {
	ID        uuid.UUID `json:"id"`
	PetID     uuid.UUID `json:"pet_id"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

type service struct {
	repo      documentRepository
	pets      petChecker
	blobs     blobStore
	bucket    string
	gcsCfg    config.GCSConfig
	maxUpload int64
	logg      *logger.Logger
}

// NewService assembles the documents service.
func NewService(repo documentRepository, pets petChecker, blobs blobStore, bucket string, gcsCfg config.GCSConfig, docsCfg config.DocumentsConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("document repository required")
	}
	if pets == nil {
		return nil, fmt.Errorf("pet checker required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket required")
	}
	return &service{
		repo:      repo,
		pets:      pets,
		blobs:     blobs,
		bucket:    bucket,
		gcsCfg:    gcsCfg,
		maxUpload: int64(docsCfg.MaxUploadMB) * 1024 * 1024,
		logg:      logg,
	}, nil
}

func (s *service) RequestUpload(ctx context.Context, ownerID, petID uuid.UUID, input UploadInput) (*UploadGrantDTO, error) {
	if _, err := s.ownedPet(ctx, ownerID, petID); err != nil {
		return nil, err
	}

	contentType, err := validateMimeType(input.ContentType)
	if err != nil {
		return nil, err
	}
	if input.SizeBytes <= 0 || input.SizeBytes > s.maxUpload {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("file size must be between 1 byte and %d MB", s.maxUpload/(1024*1024)))
	}
	fileName := sanitizeFileName(input.FileName)
	if fileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file name is required")
	}

	objectPath := fmt.Sprintf("documents/%s/%s-%s", petID, uuid.NewString(), fileName)

	uploadURL, err := s.blobs.SignedURL(s.bucket, objectPath, contentType, s.gcsCfg.UploadURLExpiry)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "presign upload")
	}

	doc, err := s.repo.Create(ctx, &models.Document{
		PetID:      petID,
		OwnerID:    ownerID,
		FileName:   fileName,
		ObjectPath: objectPath,
		MimeType:   contentType,
		SizeBytes:  input.SizeBytes,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record document")
	}

	return &UploadGrantDTO{
		Document:  fromModel(doc),
		UploadURL: uploadURL,
		ExpiresIn: int64(s.gcsCfg.UploadURLExpiry / time.Second),
	}, nil
}

func (s *service) ListForPet(ctx context.Context, ownerID, petID uuid.UUID) ([]DocumentDTO, error) {
	if _, err := s.ownedPet(ctx, ownerID, petID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByPet(ctx, petID, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list documents")
	}
	out := make([]DocumentDTO, 0, len(rows))
	for i := range rows {
		out = append(out, fromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) DownloadURL(ctx context.Context, ownerID, docID uuid.UUID) (string, error) {
	doc, err := s.ownedDoc(ctx, ownerID, docID)
	if err != nil {
		return "", err
	}
	url, err := s.blobs.SignedReadURL(s.bucket, doc.ObjectPath, s.gcsCfg.DownloadURLExpiry)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "presign download")
	}
	return url, nil
}

// Delete removes the metadata row first, then the blob. A blob that outlives
// its row is unreachable garbage; a row that outlives its blob would be a
// dangling link, which is worse.
func (s *service) Delete(ctx context.Context, ownerID, docID uuid.UUID) error {
	doc, err := s.ownedDoc(ctx, ownerID, docID)
	if err != nil {
		return err
	}

	affected, err := s.repo.DeleteForOwner(ctx, docID, ownerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete document")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "document not found")
	}

	if err := s.blobs.DeleteObject(ctx, s.bucket, doc.ObjectPath); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "document blob cleanup failed")
	}
	return nil
}

func (s *service) ownedPet(ctx context.Context, ownerID, petID uuid.UUID) (*models.Pet, error) {
	pet, err := s.pets.FindForOwner(ctx, petID, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pet not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup pet")
	}
	return pet, nil
}

func (s *service) ownedDoc(ctx context.Context, ownerID, docID uuid.UUID) (*models.Document, error) {
	doc, err := s.repo.FindForOwner(ctx, docID, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "document not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup document")
	}
	return doc, nil
}

func fromModel(m *models.Document) DocumentDTO {
	return DocumentDTO{
		ID:        m.ID,
		PetID:     m.PetID,
		FileName:  m.FileName,
		MimeType:  m.MimeType,
		SizeBytes: m.SizeBytes,
		CreatedAt: m.CreatedAt,
	}
}

// sanitizeFileName strips directories and anything outside a conservative
// character set so object paths stay predictable.
func sanitizeFileName(name string) string {
	base := path.Base(strings.TrimSpace(strings.ReplaceAll(name, "\\", "/")))
	if base == "." || base == "/" {
		return ""
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "._")
}
