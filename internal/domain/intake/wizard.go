package intake

import (
	"fmt"
	"strings"

	lex_errors "lex-intake/pkg/errors"
)

// WizardState is the finite-state cursor over the intake process.
type WizardState string

const (
	StateCollectingDocuments WizardState = "collecting-documents"
	StateDescribingSituation WizardState = "describing-situation"
	StateFinished            WizardState = "finished"
)

// Wizard sequences the user through document collection, situation
// description, and submission. Transitions are gated on completion
// predicates; a rejected transition leaves the state unchanged.
type Wizard struct {
	state                 WizardState
	requireClassification bool
	draft                 *CaseDraft
}

func NewWizard(draft *CaseDraft, requireClassification bool) *Wizard {
	return &Wizard{
		state:                 StateCollectingDocuments,
		requireClassification: requireClassification,
		draft:                 draft,
	}
}

func (w *Wizard) State() WizardState {
	return w.state
}

func (w *Wizard) Draft() *CaseDraft {
	return w.draft
}

// Advance moves one step forward if the current step is complete.
// Pressing "next" any number of times with an unmet gate never changes state.
func (w *Wizard) Advance() error {
	switch w.state {
	case StateCollectingDocuments:
		if w.requireClassification && strings.TrimSpace(w.draft.Classification) == "" {
			return fmt.Errorf("%w: choose a document classification first", lex_errors.ErrInvalidTransition)
		}
		if w.draft.Attachments.Len() == 0 {
			return fmt.Errorf("%w: add at least one document first", lex_errors.ErrInvalidTransition)
		}
		w.state = StateDescribingSituation
		return nil
	case StateDescribingSituation:
		return fmt.Errorf("%w: submit the case to finish", lex_errors.ErrInvalidTransition)
	default:
		return fmt.Errorf("%w: wizard already finished", lex_errors.ErrInvalidTransition)
	}
}

// Finish enters the terminal state. Only a successful submission calls this;
// there is no way to reach finished through Advance.
func (w *Wizard) Finish() error {
	if w.state != StateDescribingSituation {
		return fmt.Errorf("%w: cannot finish from %s", lex_errors.ErrInvalidTransition, w.state)
	}
	if strings.TrimSpace(w.draft.Description) == "" {
		return fmt.Errorf("%w: describe your situation first", lex_errors.ErrInvalidTransition)
	}
	w.state = StateFinished
	return nil
}

// Back returns to document collection. It is always permitted from the
// description step and never discards already-accepted attachments.
func (w *Wizard) Back() error {
	if w.state != StateDescribingSituation {
		return fmt.Errorf("%w: cannot go back from %s", lex_errors.ErrInvalidTransition, w.state)
	}
	w.state = StateCollectingDocuments
	return nil
}

// Finished reports whether the wizard reached its terminal state.
func (w *Wizard) Finished() bool {
	return w.state == StateFinished
}
