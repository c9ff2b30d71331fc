// Package upload is the media pipeline behind media and voice messages:
// files are saved to a local uploads directory and described by metadata the
// client then embeds in its chat message. Raw bytes never travel through the
// chat core.
package upload

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrTooLarge is returned when an upload exceeds the configured size cap.
var ErrTooLarge = errors.New("upload: file too large")

// Media types derived from the file's mimetype.
const (
	MediaImage = "image"
	MediaVideo = "video"
	MediaAudio = "audio"
	MediaFile  = "file"
)

// Result is what the pipeline hands back to the uploading client, matching
// the media-message payload of the chat protocol.
type Result struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	Mimetype     string `json:"mimetype"`
	MediaType    string `json:"mediaType"`
}

// Service saves uploads to disk under random names.
type Service struct {
	dir      string
	baseURL  string
	maxBytes int64
	logger   *slog.Logger
}

// NewService creates the uploads directory if needed. baseURL is the public
// path prefix the files are served under, e.g. "/uploads".
func NewService(dir, baseURL string, maxBytes int64, logger *slog.Logger) (*Service, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload: create dir: %w", err)
	}

	return &Service{
		dir:      dir,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		maxBytes: maxBytes,
		logger:   logger,
	}, nil
}

// Dir returns the directory uploads are stored in.
func (s *Service) Dir() string {
	return s.dir
}

// Save stores the file under a random name, preserving only the extension of
// the original name, and returns its metadata. The reader is consumed up to
// the size cap; anything larger fails with ErrTooLarge and leaves nothing
// behind.
func (s *Service) Save(originalName, mimetype string, r io.Reader) (*Result, error) {
	ext := sanitizeExt(filepath.Ext(originalName))
	if mimetype == "" {
		mimetype = mime.TypeByExtension(ext)
	}
	if mimetype == "" {
		mimetype = "application/octet-stream"
	}

	name := uuid.New().String() + ext
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("upload: create file: %w", err)
	}

	// Copy one byte past the cap so an oversized upload is detectable.
	n, err := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	closeErr := f.Close()

	switch {
	case err != nil:
		os.Remove(path)
		return nil, fmt.Errorf("upload: write file: %w", err)
	case closeErr != nil:
		os.Remove(path)
		return nil, fmt.Errorf("upload: write file: %w", closeErr)
	case n > s.maxBytes:
		os.Remove(path)
		return nil, ErrTooLarge
	}

	res := &Result{
		URL:          s.baseURL + "/" + name,
		Filename:     name,
		OriginalName: originalName,
		Size:         n,
		Mimetype:     mimetype,
		MediaType:    MediaTypeFor(mimetype),
	}
	if res.MediaType == MediaImage {
		// No resizing pipeline; clients scale the original down.
		res.ThumbnailURL = res.URL
	}

	s.logger.Debug("file stored", "name", name, "size", n, "mimetype", mimetype)
	return res, nil
}

// MediaTypeFor classifies a mimetype into the chat protocol's media types.
func MediaTypeFor(mimetype string) string {
	switch {
	case strings.HasPrefix(mimetype, "image/"):
		return MediaImage
	case strings.HasPrefix(mimetype, "video/"):
		return MediaVideo
	case strings.HasPrefix(mimetype, "audio/"):
		return MediaAudio
	default:
		return MediaFile
	}
}

// sanitizeExt keeps only simple, short extensions so a hostile filename can
// not influence the stored path.
func sanitizeExt(ext string) string {
	if ext == "" || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return strings.ToLower(ext)
}
