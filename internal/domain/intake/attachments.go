package intake

import (
	"time"

	"github.com/google/uuid"
)

// AttachmentSet is the bounded, ordered collection of accepted files for the
// in-progress case. Every insertion goes through the validator, so the set
// never holds an invalid member. Insertion order is preserved; it determines
// display and upload order.
type AttachmentSet struct {
	validator *Validator
	items     []Attachment
}

// AddResult partitions a batch into accepted attachments and per-file
// rejections. A batch where every candidate is rejected is not an error.
type AddResult struct {
	Accepted []Attachment `json:"accepted"`
	Rejected []Rejection  `json:"rejected"`
}

func NewAttachmentSet(validator *Validator) *AttachmentSet {
	return &AttachmentSet{validator: validator}
}

// Add validates candidates independently and appends the accepted ones in
// the order given. Rejected candidates are reported with their reasons.
func (s *AttachmentSet) Add(candidates ...Candidate) AddResult {
	var result AddResult
	for _, c := range candidates {
		if err := s.validator.Check(c, len(s.items)); err != nil {
			result.Rejected = append(result.Rejected, Rejection{FileName: c.FileName, Reason: err.Error()})
			continue
		}
		origin := c.Origin
		if origin == "" {
			origin = OriginPicked
		}
		att := Attachment{
			ID:          uuid.New(),
			FileName:    c.FileName,
			SizeBytes:   c.SizeBytes,
			ContentType: c.DeclaredType,
			Origin:      origin,
			Data:        c.Data,
			AddedAt:     time.Now(),
		}
		s.items = append(s.items, att)
		result.Accepted = append(result.Accepted, att)
	}
	return result
}

// Remove deletes the attachment with the given identity. Removal is by
// stable ID, never by index, so a stale view can never remove the wrong item.
func (s *AttachmentSet) Remove(id uuid.UUID) bool {
	for i, att := range s.items {
		if att.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// List returns a copy of the attachments in insertion order.
func (s *AttachmentSet) List() []Attachment {
	out := make([]Attachment, len(s.items))
	copy(out, s.items)
	return out
}

func (s *AttachmentSet) Len() int {
	return len(s.items)
}

func (s *AttachmentSet) Validator() *Validator {
	return s.validator
}
