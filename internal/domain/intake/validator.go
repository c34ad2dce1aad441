package intake

import (
	"fmt"
	"path/filepath"
	"strings"

	lex_errors "lex-intake/pkg/errors"
)

// Candidate is a file offered for inclusion in the attachment set.
// DeclaredType is the browser-reported content type; it is kept for display
// but never trusted for validation, since camera captures and some browsers
// misreport it. The extension comes from the filename instead.
type Candidate struct {
	FileName     string
	SizeBytes    int64
	DeclaredType string
	Origin       AttachmentOrigin
	Data         []byte
}

// Rejection pairs a refused candidate with a human-readable reason.
type Rejection struct {
	FileName string `json:"file_name"`
	Reason   string `json:"reason"`
}

// Validator applies the upload rules to a single candidate file.
// It is a pure rule-checker: it never mutates the attachment set.
type Validator struct {
	limits UploadLimits
}

func NewValidator(limits UploadLimits) *Validator {
	return &Validator{limits: limits.Normalize()}
}

func (v *Validator) Limits() UploadLimits {
	return v.limits
}

// Check accepts the candidate or returns the rejection reason.
// currentCount is the number of attachments already in the set.
func (v *Validator) Check(c Candidate, currentCount int) error {
	if strings.TrimSpace(c.FileName) == "" {
		return fmt.Errorf("%w: missing file name", lex_errors.ErrInvalidInput)
	}
	if currentCount >= v.limits.MaxFileCount {
		return fmt.Errorf("%w (max %d)", lex_errors.ErrTooManyFiles, v.limits.MaxFileCount)
	}
	if c.SizeBytes <= 0 {
		return fmt.Errorf("%w: empty file", lex_errors.ErrInvalidInput)
	}
	if c.SizeBytes > v.limits.MaxFileSizeBytes {
		return fmt.Errorf("%w (max %d MB)", lex_errors.ErrFileTooLarge, v.limits.MaxFileSizeBytes/(1024*1024))
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(c.FileName)), ".")
	if !v.extensionAllowed(ext) {
		return fmt.Errorf("%w: .%s (allowed: %s)", lex_errors.ErrFileTypeNotAllowed, ext, strings.Join(v.limits.AllowedExtensions, ", "))
	}
	return nil
}

func (v *Validator) extensionAllowed(ext string) bool {
	for _, allowed := range v.limits.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
