package submission

import (
	"errors"
	"fmt"
)

// State is the workflow state of a submission as seen by the person working on it.
type State int

const (
	StateNoSubmission State = iota
	StateLocked
	StateDraftEditing
	StateSubmitted
	StateEditingSubmitted
	StateGraded
	StateEditingGrade
)

var stateNames = map[State]string{
	StateNoSubmission:     "no_submission",
	StateLocked:           "locked",
	StateDraftEditing:     "draft_editing",
	StateSubmitted:        "submitted",
	StateEditingSubmitted: "editing_submitted",
	StateGraded:           "graded",
	StateEditingGrade:     "editing_grade",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Editing reports whether the state holds unsaved local edits.
func (s State) Editing() bool {
	return s == StateDraftEditing || s == StateEditingSubmitted || s == StateEditingGrade
}

// Event triggers a transition.
type Event int

const (
	EventInput Event = iota
	EventSubmit
	EventBeginEdit
	EventResubmit
	EventCancel
	EventGrade
	EventBeginGradeEdit
	EventSaveGrade
)

var eventNames = map[Event]string{
	EventInput:          "input",
	EventSubmit:         "submit",
	EventBeginEdit:      "begin_edit",
	EventResubmit:       "resubmit",
	EventCancel:         "cancel",
	EventGrade:          "grade",
	EventBeginGradeEdit: "begin_grade_edit",
	EventSaveGrade:      "save_grade",
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// Guards carries the facts a transition depends on.
type Guards struct {
	Overdue    bool
	HasContent bool
	Role       Role
}

var (
	// ErrInvalidTransition indicates the event is not accepted in the current state.
	ErrInvalidTransition = errors.New("invalid submission transition")
	// ErrLocked indicates the deadline passed before anything was submitted.
	ErrLocked = errors.New("assignment is overdue")
	// ErrNoContent indicates a submit without text, links or files.
	ErrNoContent = errors.New("submission has no content")
	// ErrNotInstructor indicates a grading event raised by a non-instructor.
	ErrNotInstructor = errors.New("only instructors can grade submissions")
)

// TransitionError describes a rejected transition.
type TransitionError struct {
	From  State
	Event Event
	Err   error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s on %s: %v", e.Event, e.From, e.Err)
}

func (e *TransitionError) Unwrap() error { return e.Err }

func reject(from State, event Event, err error) (State, error) {
	return from, &TransitionError{From: from, Event: event, Err: err}
}

// Initial derives the workflow state from a persisted record. exists is false
// when the student has no submission for the assignment yet.
func Initial(status Status, exists, overdue bool) State {
	if !exists {
		if overdue {
			return StateLocked
		}
		return StateNoSubmission
	}

	switch status {
	case StatusGraded:
		return StateGraded
	case StatusSubmitted:
		return StateSubmitted
	default:
		if overdue {
			return StateLocked
		}
		return StateDraftEditing
	}
}

// Transition computes the next state. The returned state equals from when an
// error is returned.
func Transition(from State, event Event, g Guards) (State, error) {
	switch event {
	case EventInput:
		switch from {
		case StateNoSubmission:
			if g.Overdue {
				return reject(from, event, ErrLocked)
			}
			return StateDraftEditing, nil
		case StateDraftEditing, StateEditingSubmitted:
			return from, nil
		case StateLocked:
			return reject(from, event, ErrLocked)
		}

	case EventSubmit:
		if from != StateDraftEditing {
			break
		}
		if g.Overdue {
			return reject(from, event, ErrLocked)
		}
		if !g.HasContent {
			return reject(from, event, ErrNoContent)
		}
		return StateSubmitted, nil

	case EventBeginEdit:
		if from != StateSubmitted {
			break
		}
		if g.Overdue {
			return reject(from, event, ErrLocked)
		}
		return StateEditingSubmitted, nil

	case EventResubmit:
		if from != StateEditingSubmitted {
			break
		}
		if g.Overdue {
			return reject(from, event, ErrLocked)
		}
		if !g.HasContent {
			return reject(from, event, ErrNoContent)
		}
		return StateSubmitted, nil

	case EventCancel:
		switch from {
		case StateDraftEditing:
			return StateNoSubmission, nil
		case StateEditingSubmitted:
			return StateSubmitted, nil
		case StateEditingGrade:
			return StateGraded, nil
		}

	case EventGrade:
		if from != StateSubmitted {
			break
		}
		if !g.Role.IsInstructor() {
			return reject(from, event, ErrNotInstructor)
		}
		return StateGraded, nil

	case EventBeginGradeEdit:
		if from != StateGraded {
			break
		}
		if !g.Role.IsInstructor() {
			return reject(from, event, ErrNotInstructor)
		}
		return StateEditingGrade, nil

	case EventSaveGrade:
		if from != StateEditingGrade {
			break
		}
		if !g.Role.IsInstructor() {
			return reject(from, event, ErrNotInstructor)
		}
		return StateGraded, nil
	}

	return reject(from, event, ErrInvalidTransition)
}
