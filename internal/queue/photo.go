package queue

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

var ErrMalformedPhoto = errors.New("malformed stored photo")

// EncodePhoto renders raw image bytes as a data URL, the form a browser
// FileReader produces for an offline capture.
func EncodePhoto(mimeType string, data []byte) string {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = "image/jpeg"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodePhoto accepts a base64 data URL or bare base64 and returns the image
// bytes with their mime type.
func DecodePhoto(encoded string) ([]byte, string, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, "", ErrMalformedPhoto
	}
	mimeType := "image/jpeg"
	payload := encoded
	if strings.HasPrefix(encoded, "data:") {
		header, body, ok := strings.Cut(encoded, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, "", ErrMalformedPhoto
		}
		if mt := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64"); mt != "" {
			mimeType = mt
		}
		payload = body
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", errors.Join(ErrMalformedPhoto, err)
	}
	if len(data) == 0 {
		return nil, "", ErrMalformedPhoto
	}
	return data, mimeType, nil
}
