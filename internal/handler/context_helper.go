package handler

import (
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/airconnect-api/internal/middleware"
	"github.com/noah-isme/airconnect-api/internal/models"
	"github.com/noah-isme/airconnect-api/internal/service"
	appErrors "github.com/noah-isme/airconnect-api/pkg/errors"
	"github.com/noah-isme/airconnect-api/pkg/storage"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// currentUser resolves the full account behind the request's claims. Claims
// alone are not enough: visibility needs section and registration time.
func currentUser(c *gin.Context, auth *service.AuthService) (*models.User, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	return auth.CurrentUser(c.Request.Context(), claims)
}

// formMediaFiles reads the multipart "media" parts into memory, enforcing the
// per-file size cap.
func formMediaFiles(c *gin.Context, maxBytes int64) ([]storage.MediaFile, error) {
	form, err := c.MultipartForm()
	if err != nil {
		// Plain JSON request without attachments.
		return nil, nil
	}
	parts := form.File["media"]
	if len(parts) == 0 {
		return nil, nil
	}

	files := make([]storage.MediaFile, 0, len(parts))
	for _, part := range parts {
		if maxBytes > 0 && part.Size > maxBytes {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("file %s exceeds the %d byte limit", part.Filename, maxBytes))
		}
		data, err := readPart(part)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
				fmt.Sprintf("failed to read file %s", part.Filename))
		}
		files = append(files, storage.MediaFile{Name: part.Filename, Data: data})
	}
	return files, nil
}

func readPart(part *multipart.FileHeader) ([]byte, error) {
	f, err := part.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
