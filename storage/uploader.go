package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

// ProofKey builds the object key of a payment screenshot. The random suffix
// keeps a re-upload from overwriting the earlier object.
func ProofKey(userID, paymentID int64, ext string) string {
	return fmt.Sprintf("payments/%d/%d/%s%s", userID, paymentID, uuid.NewString(), ext)
}

// ExtensionFor maps an image content type to a file extension.
func ExtensionFor(contentType string) (string, error) {
	mediaType, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(contentType)), ";")
	switch mediaType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/webp":
		return ".webp", nil
	default:
		return "", fmt.Errorf("unsupported proof content type %q", contentType)
	}
}
