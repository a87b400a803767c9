package controllers

import (
	"net/http"

	"github.com/pawtagapp/pawtag-backend/api/responses"
	"github.com/pawtagapp/pawtag-backend/api/validators"
	"github.com/pawtagapp/pawtag-backend/internal/documents"
	pkgerrors "github.com/pawtagapp/pawtag-backend/pkg/errors"
	"github.com/pawtagapp/pawtag-backend/pkg/logger"
)

type uploadRequest struct {
	FileName    string `json:"file_name" validate:"required,min=1,max=255"`
	ContentType string `json:"content_type" validate:"required"`
	SizeBytes   int64  `json:"size_bytes" validate:"required,min=1"`
}

// RequestDocumentUpload reserves a document slot and hands back a presigned
// PUT URL. The client uploads the bytes directly to the bucket.
func RequestDocumentUpload(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "document service unavailable"))
			return
		}

		owner, err := ownerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		petID, err := pathUUID(r, "petID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req uploadRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		grant, err := svc.RequestUpload(r.Context(), owner, petID, documents.UploadInput{
			FileName:    req.FileName,
			ContentType: req.ContentType,
			SizeBytes:   req.SizeBytes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, grant)
	}
}

func ListPetDocuments(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "document service unavailable"))
			return
		}

		owner, err := ownerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		petID, err := pathUUID(r, "petID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForPet(r.Context(), owner, petID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// DocumentDownloadURL mints a short-lived read URL for an owned document.
func DocumentDownloadURL(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "document service unavailable"))
			return
		}

		owner, err := ownerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		docID, err := pathUUID(r, "documentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		url, err := svc.DownloadURL(r.Context(), owner, docID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"download_url": url})
	}
}

func DeleteDocument(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "document service unavailable"))
			return
		}

		owner, err := ownerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		docID, err := pathUUID(r, "documentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), owner, docID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
