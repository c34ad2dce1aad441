package intake

import (
	"errors"
	"testing"

	lex_errors "lex-intake/pkg/errors"
)

func readyDraft(t *testing.T) *CaseDraft {
	t.Helper()
	d := NewCaseDraft(testLimits())
	d.Classification = "contract-dispute"
	result := d.Attachments.Add(Candidate{FileName: "contract.pdf", SizeBytes: 100})
	if len(result.Accepted) != 1 {
		t.Fatalf("fixture attachment rejected: %+v", result.Rejected)
	}
	return d
}

func TestWizard_Advance(t *testing.T) {
	t.Run("blocks without attachments", func(t *testing.T) {
		d := NewCaseDraft(testLimits())
		d.Classification = "contract-dispute"
		w := NewWizard(d, true)
		err := w.Advance()
		if !errors.Is(err, lex_errors.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
		if w.State() != StateCollectingDocuments {
			t.Fatalf("failed advance changed state to %s", w.State())
		}
	})

	t.Run("blocks without classification when required", func(t *testing.T) {
		d := readyDraft(t)
		d.Classification = ""
		w := NewWizard(d, true)
		if err := w.Advance(); !errors.Is(err, lex_errors.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("classification optional when not required", func(t *testing.T) {
		d := readyDraft(t)
		d.Classification = ""
		w := NewWizard(d, false)
		if err := w.Advance(); err != nil {
			t.Fatalf("expected advance, got %v", err)
		}
		if w.State() != StateDescribingSituation {
			t.Fatalf("expected describing-situation, got %s", w.State())
		}
	})

	t.Run("repeated blocked advance never changes state", func(t *testing.T) {
		d := NewCaseDraft(testLimits())
		w := NewWizard(d, true)
		for i := 0; i < 4; i++ {
			if err := w.Advance(); err == nil {
				t.Fatal("expected blocked advance")
			}
		}
		if w.State() != StateCollectingDocuments {
			t.Fatalf("state drifted to %s", w.State())
		}
	})

	t.Run("advance never finishes the wizard", func(t *testing.T) {
		d := readyDraft(t)
		d.Description = "the landlord withheld the deposit"
		w := NewWizard(d, true)
		if err := w.Advance(); err != nil {
			t.Fatalf("first advance: %v", err)
		}
		if err := w.Advance(); !errors.Is(err, lex_errors.ErrInvalidTransition) {
			t.Fatalf("expected advance from description to be rejected, got %v", err)
		}
		if w.State() != StateDescribingSituation {
			t.Fatalf("state drifted to %s", w.State())
		}
	})
}

func TestWizard_Finish(t *testing.T) {
	t.Run("rejected from document collection", func(t *testing.T) {
		w := NewWizard(readyDraft(t), true)
		if err := w.Finish(); !errors.Is(err, lex_errors.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("blocked without a description", func(t *testing.T) {
		d := readyDraft(t)
		w := NewWizard(d, true)
		if err := w.Advance(); err != nil {
			t.Fatalf("advance: %v", err)
		}
		if err := w.Finish(); !errors.Is(err, lex_errors.ErrInvalidTransition) {
			t.Fatalf("expected block without description, got %v", err)
		}
		if w.State() != StateDescribingSituation {
			t.Fatalf("failed finish changed state to %s", w.State())
		}
	})

	t.Run("full walk to finished", func(t *testing.T) {
		d := readyDraft(t)
		w := NewWizard(d, true)
		if err := w.Advance(); err != nil {
			t.Fatalf("advance: %v", err)
		}
		d.Description = "the landlord withheld the deposit"
		if err := w.Finish(); err != nil {
			t.Fatalf("finish: %v", err)
		}
		if !w.Finished() {
			t.Fatalf("expected finished, got %s", w.State())
		}
		if err := w.Advance(); !errors.Is(err, lex_errors.ErrInvalidTransition) {
			t.Fatalf("expected terminal state to reject advance, got %v", err)
		}
		if err := w.Finish(); !errors.Is(err, lex_errors.ErrInvalidTransition) {
			t.Fatalf("expected terminal state to reject finish, got %v", err)
		}
	})
}

func TestWizard_Back(t *testing.T) {
	d := readyDraft(t)
	w := NewWizard(d, true)

	t.Run("rejected from document collection", func(t *testing.T) {
		if err := w.Back(); !errors.Is(err, lex_errors.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("returns from description and keeps attachments", func(t *testing.T) {
		if err := w.Advance(); err != nil {
			t.Fatalf("advance: %v", err)
		}
		if err := w.Back(); err != nil {
			t.Fatalf("back: %v", err)
		}
		if w.State() != StateCollectingDocuments {
			t.Fatalf("expected collecting-documents, got %s", w.State())
		}
		if d.Attachments.Len() != 1 {
			t.Fatalf("back discarded attachments: %d", d.Attachments.Len())
		}
	})
}
