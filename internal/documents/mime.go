package documents

import (
	"fmt"
	"mime"
	"strings"

	pkgerrors "github.com/pawtagapp/pawtag-backend/pkg/errors"
)

// Pet documents are photos and paperwork; nothing executable, nothing huge.
var allowedMimeTypes = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// validateMimeType normalizes and checks the declared content type.
func validateMimeType(contentType string) (string, error) {
	parsed, _, err := mime.ParseMediaType(strings.TrimSpace(contentType))
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unrecognized content type")
	}
	if _, ok := allowedMimeTypes[parsed]; !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("content type %s is not allowed; use a PNG, JPEG, WebP, or PDF", parsed))
	}
	return parsed, nil
}
