package decoder

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
	MimeWEBP = "image/webp"
)

var (
	ErrInvalidBase64    = errors.New("invalid base64 payload")
	ErrImageTooLarge    = errors.New("image exceeds maximum size")
	ErrUnsupportedImage = errors.New("unsupported image format")
)

var (
	dataURLRegex     = regexp.MustCompile(`(?is)^data:([^;,]*);base64,(.*)$`)
	whitespaceRemove = strings.NewReplacer(" ", "", "\n", "", "\r", "", "\t", "")
	allowedMimes     = []string{MimePNG, MimeJPEG, MimeWEBP}
)

// DecodedImage is an image whose format was established from its own bytes.
type DecodedImage struct {
	Bytes    []byte
	MimeType string
	// DeclaredMimeType is whatever the data URL claimed; informational only.
	DeclaredMimeType string
}

// DataURL re-encodes the image with its sniffed mime type.
func (d *DecodedImage) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", d.MimeType, base64.StdEncoding.EncodeToString(d.Bytes))
}

// ImageDecoder turns data URLs or raw base64 strings into allow-listed images.
type ImageDecoder struct {
	MaxBytes int64
}

func NewImageDecoder(maxBytes int64) *ImageDecoder {
	return &ImageDecoder{MaxBytes: maxBytes}
}

// Decode strips an optional data URL prefix, decodes the payload, enforces the size
// ceiling and sniffs the format from the signature bytes.
func (d *ImageDecoder) Decode(input string) (*DecodedImage, error) {
	declared, payload := SplitDataURL(input)

	payload = whitespaceRemove.Replace(payload)
	payload = strings.TrimRight(payload, "=")
	if payload == "" {
		return nil, ErrInvalidBase64
	}

	enc := base64.RawStdEncoding
	if strings.ContainsAny(payload, "-_") {
		enc = base64.RawURLEncoding
	}

	if int64(enc.DecodedLen(len(payload))) > d.MaxBytes {
		return nil, d.tooLarge()
	}

	buf, err := enc.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
	}
	if int64(len(buf)) > d.MaxBytes {
		return nil, d.tooLarge()
	}

	detected, ok := Sniff(buf)
	if !ok {
		return nil, ErrUnsupportedImage
	}

	return &DecodedImage{
		Bytes:            buf,
		MimeType:         detected,
		DeclaredMimeType: declared,
	}, nil
}

func (d *ImageDecoder) tooLarge() error {
	return fmt.Errorf("%w (%d bytes)", ErrImageTooLarge, d.MaxBytes)
}

// SplitDataURL returns the declared mime type and the base64 payload. Input without a
// data URL prefix is returned unchanged as the payload.
func SplitDataURL(input string) (string, string) {
	input = strings.TrimSpace(input)
	m := dataURLRegex.FindStringSubmatch(input)
	if m == nil {
		return "", input
	}
	return strings.ToLower(strings.TrimSpace(m[1])), m[2]
}

// Sniff detects the format of buf and reports whether it is an allowed image type.
func Sniff(buf []byte) (string, bool) {
	if len(buf) == 0 {
		return "", false
	}
	mt := mimetype.Detect(buf)
	for _, allowed := range allowedMimes {
		if mt.Is(allowed) {
			return allowed, true
		}
	}
	return mt.String(), false
}
