// Package media proxies listing image uploads to object storage.
package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/archivesurmer-backend/pkg/errors"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
)

const (
	maxFolderLen  = 120
	maxRemoteURL  = 700
	dataURLPrefix = "data:"
)

type objectStore interface {
	Upload(ctx context.Context, object, contentType string, data []byte) error
	PublicURL(object string) string
}

// Service exposes the image upload proxy.
type Service interface {
	Upload(ctx context.Context, input UploadInput) (*UploadOutput, error)
}

type UploadInput struct {
	ImageData string
	Folder    string
}

// UploadOutput is returned to the client. PublicID is empty for remote URLs.
type UploadOutput struct {
	SecureURL   string `json:"secure_url"`
	PublicID    string `json:"public_id,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Bytes       int    `json:"bytes,omitempty"`
}

type service struct {
	store         objectStore
	maxBytes      int64
	defaultFolder string
	logg          *logger.Logger
}

// NewService constructs the upload service backed by the provided object store.
func NewService(store objectStore, maxBytes int64, defaultFolder string, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max upload bytes must be positive")
	}
	folder := sanitizeFolder(defaultFolder)
	if folder == "" {
		return nil, fmt.Errorf("default folder required")
	}
	return &service{store: store, maxBytes: maxBytes, defaultFolder: folder, logg: logg}, nil
}

func (s *service) Upload(ctx context.Context, input UploadInput) (*UploadOutput, error) {
	raw := strings.TrimSpace(input.ImageData)
	if raw == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "imageData is required. Use a remote URL or base64 data URL.")
	}

	if !strings.HasPrefix(strings.ToLower(raw), dataURLPrefix) {
		remote, err := parseRemoteURL(raw)
		if err != nil {
			return nil, err
		}
		return &UploadOutput{SecureURL: remote}, nil
	}

	data, err := s.decodeDataURL(raw)
	if err != nil {
		return nil, err
	}
	contentType, ext, err := detectImage(data)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Only "+allowedImageDescription+" can be uploaded.")
	}

	folder := sanitizeFolder(input.Folder)
	if folder == "" {
		folder = s.defaultFolder
	}
	object := path.Join(folder, uuid.NewString()+"."+ext)

	if err := s.store.Upload(ctx, object, contentType, data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload image")
	}
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{"object": object, "bytes": len(data)})
		s.logg.Info(ctx, "image uploaded")
	}

	return &UploadOutput{
		SecureURL:   s.store.PublicURL(object),
		PublicID:    object,
		ContentType: contentType,
		Bytes:       len(data),
	}, nil
}

func (s *service) decodeDataURL(raw string) ([]byte, error) {
	header, payload, ok := strings.Cut(raw[len(dataURLPrefix):], ",")
	if !ok || !strings.HasSuffix(strings.ToLower(header), ";base64") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "imageData must be a base64 data URL.")
	}
	declared, err := parseDeclaredType(header[:len(header)-len(";base64")])
	if err != nil || (declared != "" && !strings.HasPrefix(declared, "image/")) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Only "+allowedImageDescription+" can be uploaded.")
	}

	// cheap bound check before decoding
	if int64(base64.StdEncoding.DecodedLen(len(payload))) > s.maxBytes+2 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Image payload is too large.")
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "imageData is not valid base64.")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Image payload is too large.")
	}
	if len(data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "imageData is empty.")
	}
	return data, nil
}

func parseRemoteURL(raw string) (string, error) {
	invalid := pkgerrors.New(pkgerrors.CodeValidation, "imageData is required. Use a remote URL or base64 data URL.")
	if len(raw) > maxRemoteURL {
		return "", invalid
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", invalid
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", invalid
	}
	return u.String(), nil
}

// sanitizeFolder keeps a relative object prefix made of safe path segments.
func sanitizeFolder(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if len(raw) > maxFolderLen {
		raw = raw[:maxFolderLen]
	}
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToLower(raw) {
		switch {
		case r == '/' || r == '-' || r == '_':
			b.WriteRune(r)
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('-')
		}
	}
	segments := strings.Split(b.String(), "/")
	kept := segments[:0]
	for _, seg := range segments {
		seg = strings.Trim(seg, "-_")
		if seg != "" {
			kept = append(kept, seg)
		}
	}
	return strings.Join(kept, "/")
}
