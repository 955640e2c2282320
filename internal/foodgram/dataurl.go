package foodgram

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MaxImageSize caps uploaded images before they are base64-encoded.
const MaxImageSize = 5 << 20

// EncodeDataURL reads an uploaded file and returns it as a data URL, the format the
// backend's image fields accept. The content type is sniffed and must be an image.
func EncodeDataURL(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return "", fmt.Errorf("foodgram: reading image: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("foodgram: image is empty")
	}
	if len(data) > MaxImageSize {
		return "", fmt.Errorf("foodgram: image is larger than %d bytes", MaxImageSize)
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("foodgram: %s is not an image", contentType)
	}

	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
