package conversation

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrUnsupportedImage is returned for image references whose type cannot be sent to a model.
var ErrUnsupportedImage = errors.New("unsupported image type")

// DefaultImageCacheSize is the number of encoded images kept by a shared loader.
const DefaultImageCacheSize = 64

var mimeByExt = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// MIMEType infers the MIME type of an image path from its extension.
func MIMEType(path string) (string, bool) {
	mt, ok := mimeByExt[strings.ToLower(filepath.Ext(path))]
	return mt, ok
}

// ImageLoader turns file paths and data URIs into image segments.
// Encoded files are cached by path, size and modification time, so one loader
// can be shared by every agent in a process.
type ImageLoader struct {
	cache *lru.Cache[string, Segment]
}

// NewImageLoader creates a loader caching up to size images. size <= 0 disables caching.
func NewImageLoader(size int) *ImageLoader {
	if size <= 0 {
		return &ImageLoader{}
	}
	cache, err := lru.New[string, Segment](size)
	if err != nil {
		return &ImageLoader{}
	}
	return &ImageLoader{cache: cache}
}

// Load resolves ref, a file path or a data URI, into an image segment.
func (l *ImageLoader) Load(ref string) (Segment, error) {
	if strings.HasPrefix(ref, "data:") {
		return parseDataURI(ref)
	}

	mimeType, ok := MIMEType(ref)
	if !ok {
		return Segment{}, fmt.Errorf("%w: %s", ErrUnsupportedImage, filepath.Ext(ref))
	}

	info, err := os.Stat(ref)
	if err != nil {
		return Segment{}, fmt.Errorf("stat image: %w", err)
	}
	key := fmt.Sprintf("%s|%d|%d", ref, info.Size(), info.ModTime().UnixNano())
	if l.cache != nil {
		if seg, ok := l.cache.Get(key); ok {
			return seg, nil
		}
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		return Segment{}, fmt.Errorf("read image: %w", err)
	}
	seg := ImageSegment(base64.StdEncoding.EncodeToString(data), mimeType)
	if l.cache != nil {
		l.cache.Add(key, seg)
	}
	return seg, nil
}

// parseDataURI accepts data:<mime>;base64,<payload>.
func parseDataURI(uri string) (Segment, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return Segment{}, fmt.Errorf("%w: malformed data uri", ErrUnsupportedImage)
	}
	mimeType, encoding, _ := strings.Cut(header, ";")
	if encoding != "base64" || !strings.HasPrefix(mimeType, "image/") {
		return Segment{}, fmt.Errorf("%w: %s", ErrUnsupportedImage, header)
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return Segment{}, fmt.Errorf("%w: invalid base64 payload", ErrUnsupportedImage)
	}
	return ImageSegment(payload, mimeType), nil
}

// Decode returns the raw bytes of an image segment.
func (s Segment) Decode() ([]byte, error) {
	if s.Kind != SegmentImage {
		return nil, fmt.Errorf("segment is %s, not an image", s.Kind)
	}
	return base64.StdEncoding.DecodeString(s.Data)
}
