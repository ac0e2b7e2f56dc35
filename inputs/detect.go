package inputs

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// DetectKind sniffs the first bytes of path and classifies it by MIME type
// prefix. The file extension is consulted when sniffing is inconclusive.
func DetectKind(path string) (Kind, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to open source: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", "", fmt.Errorf("failed to read source header: %w", err)
	}
	return kindOf(head[:n], filepath.Ext(path))
}

func kindOf(head []byte, ext string) (Kind, string, error) {
	mimeType := http.DetectContentType(head)
	if k, ok := kindFromMIME(mimeType); ok {
		return k, mimeType, nil
	}
	if byExt := typeByExtension(strings.ToLower(ext)); byExt != "" {
		if k, ok := kindFromMIME(byExt); ok {
			return k, byExt, nil
		}
		mimeType = byExt
	}
	return "", mimeType, fmt.Errorf("unsupported source type %q", mimeType)
}

// videoExtensions covers containers missing from the builtin mime table.
var videoExtensions = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".ogv":  "video/ogg",
}

func typeByExtension(ext string) string {
	if t, ok := videoExtensions[ext]; ok {
		return t
	}
	return mime.TypeByExtension(ext)
}

func kindFromMIME(mimeType string) (Kind, bool) {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return KindImage, true
	case strings.HasPrefix(mimeType, "video/"):
		return KindVideo, true
	}
	return "", false
}

// Open decodes path into a Source of the detected kind.
func Open(path string, opts Options) (Source, error) {
	kind, mimeType, err := DetectKind(path)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindImage:
		return OpenImage(path, opts)
	case KindVideo:
		return OpenVideo(path, opts)
	}
	return nil, fmt.Errorf("unsupported source type %q", mimeType)
}
