package media

import (
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// allowedImageTypes maps accepted sniffed types to the stored extension.
var allowedImageTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

const allowedImageDescription = "JPEG, PNG, WebP or GIF images"

// parseDeclaredType reads the media type from a data URL header.
func parseDeclaredType(value string) (string, error) {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return "", nil
	}
	mediaType, _, err := mime.ParseMediaType(clean)
	if err != nil {
		return "", fmt.Errorf("mime type invalid: %w", err)
	}
	return strings.ToLower(mediaType), nil
}

// detectImage sniffs content and returns its mime type and extension. The
// declared type is never trusted.
func detectImage(data []byte) (string, string, error) {
	detected := mimetype.Detect(data)
	for allowed, ext := range allowedImageTypes {
		if detected.Is(allowed) {
			return allowed, ext, nil
		}
	}
	return "", "", fmt.Errorf("unsupported content type %s", detected.String())
}
