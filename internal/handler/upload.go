package handler

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campushub/codeathon-api/pkg/config"
	appErrors "github.com/campushub/codeathon-api/pkg/errors"
	"github.com/campushub/codeathon-api/pkg/storage"
)

// saveUpload validates and persists one multipart file, returning the stored
// relative path. Files are stored under subdir with a random name so client
// filenames never reach the filesystem.
func saveUpload(c *gin.Context, store *storage.LocalStorage, cfg config.UploadsConfig, field, subdir string) (string, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("missing %s file", field))
	}
	if cfg.MaxFileSizeBytes > 0 && header.Size > cfg.MaxFileSizeBytes {
		return "", appErrors.Clone(appErrors.ErrValidation, "file exceeds the size limit")
	}
	if err := checkMIME(header, cfg.AllowedMIMEs); err != nil {
		return "", err
	}

	src, err := header.Open()
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
	}
	defer src.Close() //nolint:errcheck

	name := filepath.Join(subdir, uuid.NewString()+strings.ToLower(filepath.Ext(header.Filename)))
	stored, err := store.SaveStream(name, src)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload")
	}
	return stored, nil
}

func checkMIME(header *multipart.FileHeader, allowed []string) error {
	if len(allowed) == 0 {
		return nil
	}
	contentType := header.Header.Get("Content-Type")
	for _, mime := range allowed {
		if strings.EqualFold(contentType, mime) {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported content type %q", contentType))
}
