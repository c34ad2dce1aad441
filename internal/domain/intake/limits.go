package intake

import "strings"

// UploadLimits bounds what the attachment set may accept. Backend-supplied
// limits are authoritative whenever available; DefaultLimits is the
// development-time fallback.
type UploadLimits struct {
	MaxFileSizeBytes  int64    `json:"max_file_size_bytes"`
	MaxFileCount      int      `json:"max_file_count"`
	AllowedExtensions []string `json:"allowed_extensions"`
}

func DefaultLimits() UploadLimits {
	return UploadLimits{
		MaxFileSizeBytes:  10 * 1024 * 1024,
		MaxFileCount:      5,
		AllowedExtensions: []string{"pdf", "jpg", "jpeg", "png", "doc", "docx"},
	}
}

// Normalize lower-cases extensions and strips leading dots so comparisons
// are uniform regardless of how the backend reports them.
func (l UploadLimits) Normalize() UploadLimits {
	exts := make([]string, 0, len(l.AllowedExtensions))
	for _, e := range l.AllowedExtensions {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			exts = append(exts, e)
		}
	}
	l.AllowedExtensions = exts
	return l
}

// Valid reports whether the limits are usable as-is.
func (l UploadLimits) Valid() bool {
	return l.MaxFileSizeBytes > 0 && l.MaxFileCount > 0 && len(l.AllowedExtensions) > 0
}
