// Package review submits a user's file to the moderation function.
package review

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"

	"github.com/lehigh-university-libraries/gallery/internal/identity"
	"github.com/lehigh-university-libraries/gallery/internal/media"
	"github.com/lehigh-university-libraries/gallery/internal/uploads"
)

var (
	ErrNoFile       = errors.New("no file selected")
	ErrFileType     = errors.New("only png, jpg, gif and svg images can be submitted")
	ErrFileTooLarge = fmt.Errorf("file too large (max %d bytes)", media.MaxPayload)
)

const defaultContentType = "image/png"

// Invoker calls a named server-side function
type Invoker interface {
	Invoke(ctx context.Context, function, token string, payload any) error
}

// Payload is the body sent to the review function
type Payload struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	FileBase64  string `json:"fileBase64"`
}

// Submitter sends files for manual review. Approved files later appear in the
// upload namespace and reach viewers through the change feed.
type Submitter struct {
	invoker  Invoker
	function string
}

func NewSubmitter(invoker Invoker, function string) *Submitter {
	return &Submitter{invoker: invoker, function: function}
}

// NewPayload validates a file and encodes it for submission.
func NewPayload(user identity.User, filename, contentType string, data []byte) (Payload, error) {
	if filename == "" || len(data) == 0 {
		return Payload{}, ErrNoFile
	}
	filename = path.Base(filename)
	if !uploads.Allowed(filename) {
		return Payload{}, ErrFileType
	}
	if len(data) > media.MaxPayload {
		return Payload{}, ErrFileTooLarge
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
		if contentType == "application/octet-stream" {
			contentType = defaultContentType
		}
	}
	return Payload{
		Username:    user.Username(),
		Email:       user.Email,
		Filename:    filename,
		ContentType: contentType,
		FileBase64:  base64.StdEncoding.EncodeToString(data),
	}, nil
}

// Submit sends the file on behalf of user. The function's error message is
// kept in the returned error.
func (s *Submitter) Submit(ctx context.Context, token string, user identity.User, filename, contentType string, data []byte) error {
	payload, err := NewPayload(user, filename, contentType, data)
	if err != nil {
		return err
	}

	slog.Info("Submitting upload for review", "user", payload.Username, "filename", payload.Filename, "bytes", len(data))
	if err := s.invoker.Invoke(ctx, s.function, token, payload); err != nil {
		return fmt.Errorf("submission failed: %w", err)
	}
	return nil
}
