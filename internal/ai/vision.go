package ai

import (
	"context"
	"encoding/base64"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/DartonStaker/appapost/pkg/logging"
)

const (
	visionFetchTimeout = 10 * time.Second
	maxImageBytes      = 20 << 20
)

// InlineImage is a normalized image payload for multimodal backends.
type InlineImage struct {
	MimeType string
	Base64   string
}

// VisionResolver turns an image reference into an inline payload.
// Resolution failures degrade generation to text-only, so Resolve
// never returns an error.
type VisionResolver struct {
	client *http.Client
	logger logging.Logger
}

func NewVisionResolver(logger logging.Logger) *VisionResolver {
	return &VisionResolver{
		client: &http.Client{Timeout: visionFetchTimeout},
		logger: logger,
	}
}

// Resolve classifies imageRef as a data URI, remote URL or local path
// and normalizes it. Any failure yields nil.
func (v *VisionResolver) Resolve(ctx context.Context, imageRef string) *InlineImage {
	imageRef = strings.TrimSpace(imageRef)
	if imageRef == "" {
		return nil
	}

	var img *InlineImage
	switch {
	case strings.HasPrefix(imageRef, "data:"):
		img = v.fromDataURI(imageRef)
	case strings.HasPrefix(imageRef, "http://"), strings.HasPrefix(imageRef, "https://"):
		img = v.fromURL(ctx, imageRef)
	default:
		img = v.fromFile(imageRef)
	}

	if img == nil && v.logger != nil {
		v.logger.WithFields(logging.Fields{
			"image_ref": imageRef,
		}).Warn("Image could not be resolved, generating text-only captions")
	}
	return img
}

func (v *VisionResolver) fromDataURI(uri string) *InlineImage {
	rest := strings.TrimPrefix(uri, "data:")
	semi := strings.Index(rest, ";base64,")
	if semi < 0 {
		return nil
	}
	mimeType := rest[:semi]
	payload := rest[semi+len(";base64,"):]
	if !strings.HasPrefix(mimeType, "image/") || payload == "" {
		return nil
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return nil
	}
	return &InlineImage{MimeType: mimeType, Base64: payload}
}

func (v *VisionResolver) fromURL(ctx context.Context, url string) *InlineImage {
	ctx, cancel := context.WithTimeout(ctx, visionFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil || len(data) == 0 {
		return nil
	}

	mimeType := resp.Header.Get("Content-Type")
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil
	}

	return &InlineImage{
		MimeType: mimeType,
		Base64:   base64.StdEncoding.EncodeToString(data),
	}
}

func (v *VisionResolver) fromFile(path string) *InlineImage {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return nil
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil
	}

	return &InlineImage{
		MimeType: mimeType,
		Base64:   base64.StdEncoding.EncodeToString(data),
	}
}
