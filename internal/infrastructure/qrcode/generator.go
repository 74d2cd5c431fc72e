// Package qrcode renders provisioning URIs as QR images. It is a pure
// function from string to PNG bytes; nothing in here knows what a TOTP
// secret is.
package qrcode

import (
	"errors"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

var (
	// ErrEmptyContent is returned when the content string is empty or only whitespace.
	ErrEmptyContent = errors.New("content cannot be empty")
	// ErrGenerationFailed is returned when the QR encoding itself fails.
	ErrGenerationFailed = errors.New("failed to generate QR code")
)

// defaultSize is the size in pixels used when no size is specified.
const defaultSize = 256

// GeneratePNG encodes content as a QR code PNG of size x size pixels.
func GeneratePNG(content string, size int) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if size <= 0 {
		size = defaultSize
	}
	png, err := skipqrcode.Encode(content, skipqrcode.Medium, size)
	if err != nil {
		return nil, errors.Join(ErrGenerationFailed, err)
	}
	return png, nil
}
