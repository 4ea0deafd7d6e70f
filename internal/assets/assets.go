// Package assets stores the media attached to site content: thumbnails,
// banners, report PDFs, podcast audio and applicant resumes.
package assets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind is the class of an uploaded file.
type Kind string

const (
	KindImage  Kind = "image"
	KindPDF    Kind = "pdf"
	KindAudio  Kind = "audio"
	KindResume Kind = "resume"
)

// ParseKind validates an upload kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindImage, KindPDF, KindAudio, KindResume:
		return k, nil
	default:
		return "", &ErrInvalidAsset{Reason: fmt.Sprintf("unknown asset kind %q", s)}
	}
}

// MaxSize is the upload limit for a kind.
func (k Kind) MaxSize() int64 {
	switch k {
	case KindAudio:
		return 50 << 20
	case KindPDF:
		return 20 << 20
	case KindResume:
		return 5 << 20
	default:
		return 8 << 20
	}
}

func (k Kind) accepts(contentType string) bool {
	switch k {
	case KindImage:
		return strings.HasPrefix(contentType, "image/")
	case KindPDF, KindResume:
		return contentType == "application/pdf"
	case KindAudio:
		return strings.HasPrefix(contentType, "audio/") || contentType == "application/ogg"
	}
	return false
}

// Asset describes a stored file.
type Asset struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	Kind        Kind   `json:"kind"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	// Pages is set for PDFs.
	Pages int `json:"pages,omitempty"`
}

// ErrInvalidAsset is returned for uploads that fail validation.
type ErrInvalidAsset struct {
	Reason string
	Cause  error
}

func (e *ErrInvalidAsset) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid asset: %s: %v", e.Reason, e.Cause)
	}
	return "invalid asset: " + e.Reason
}

func (e *ErrInvalidAsset) Unwrap() error {
	return e.Cause
}

// Store is a blob backend.
type Store interface {
	// Put writes the object and returns its public URL.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Uploader validates files and writes them to a Store.
type Uploader struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
	newID func() string
}

// UploaderOption configures an Uploader.
type UploaderOption func(*Uploader)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) UploaderOption {
	return func(u *Uploader) { u.log = l }
}

// NewUploader creates an Uploader.
func NewUploader(store Store, opts ...UploaderOption) *Uploader {
	u := &Uploader{
		store: store,
		log:   zap.NewNop(),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Upload reads r fully, checks it against kind and stores it under
// kind/YYYY/MM/<uuid><ext>.
func (u *Uploader) Upload(ctx context.Context, kind Kind, filename string, r io.Reader) (*Asset, error) {
	limit := kind.MaxSize()
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, &ErrInvalidAsset{Reason: "empty file"}
	}
	if int64(len(data)) > limit {
		return nil, &ErrInvalidAsset{Reason: fmt.Sprintf("file exceeds %d MB limit for %s", limit>>20, kind)}
	}

	contentType := sniff(data, filename)
	if !kind.accepts(contentType) {
		return nil, &ErrInvalidAsset{Reason: fmt.Sprintf("%s is not an accepted %s type", contentType, kind)}
	}

	asset := &Asset{Kind: kind, ContentType: contentType, Size: int64(len(data))}
	if contentType == "application/pdf" {
		pages, err := ValidatePDF(data)
		if err != nil {
			return nil, err
		}
		asset.Pages = pages
	}

	asset.Key = path.Join(string(kind), u.now().UTC().Format("2006/01"), u.newID()+extension(contentType, filename))
	url, err := u.store.Put(ctx, asset.Key, bytes.NewReader(data), asset.Size, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store asset: %w", err)
	}
	asset.URL = url

	u.log.Info("stored asset",
		zap.String("key", asset.Key),
		zap.String("content_type", contentType),
		zap.Int64("size", asset.Size),
	)
	return asset, nil
}

// Delete removes a stored asset.
func (u *Uploader) Delete(ctx context.Context, key string) error {
	if err := u.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete asset %s: %w", key, err)
	}
	return nil
}

// sniff trusts the bytes over the file name, except for audio formats that
// http.DetectContentType does not know.
func sniff(data []byte, filename string) string {
	ct := http.DetectContentType(data)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	if ct == "application/octet-stream" {
		switch strings.ToLower(path.Ext(filename)) {
		case ".mp3":
			return "audio/mpeg"
		case ".m4a":
			return "audio/mp4"
		}
	}
	return ct
}

func extension(contentType, filename string) string {
	switch contentType {
	case "application/pdf":
		return ".pdf"
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "audio/mpeg":
		return ".mp3"
	}
	return strings.ToLower(path.Ext(filename))
}
