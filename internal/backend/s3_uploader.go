package backend

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"lex-intake/internal/domain/intake"
)

// ObjectStore is the subset of the storage client the uploader needs.
type ObjectStore interface {
	PutObject(ctx context.Context, key, contentType string, data []byte) error
}

// S3Uploader drops attachments into a staging bucket the backend indexer
// watches, instead of posting them through the case API. Each file is stored
// independently; one failed put never rolls back the others.
type S3Uploader struct {
	store     ObjectStore
	keyPrefix string
}

func NewS3Uploader(store ObjectStore, keyPrefix string) *S3Uploader {
	return &S3Uploader{store: store, keyPrefix: strings.Trim(keyPrefix, "/")}
}

func (u *S3Uploader) UploadDocuments(ctx context.Context, caseID string, attachments []intake.Attachment) (UploadOutcome, error) {
	var outcome UploadOutcome
	for _, att := range attachments {
		key := u.objectKey(caseID, att)
		if err := u.store.PutObject(ctx, key, att.ContentType, att.Data); err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s: %s", att.FileName, err.Error()))
			continue
		}
		outcome.Files = append(outcome.Files, FileResult{
			OriginalName: att.FileName,
			StoredName:   key,
			Category:     "pending-analysis",
			Status:       "stored",
		})
	}
	return outcome, nil
}

func (u *S3Uploader) objectKey(caseID string, att intake.Attachment) string {
	ext := strings.ToLower(filepath.Ext(att.FileName))
	return fmt.Sprintf("%s/%s/%s%s", u.keyPrefix, caseID, uuid.NewString(), ext)
}
