package domain

// Outcome classifies a graded submission. The four cases keep "no cell because
// the answer was wrong" distinct from "no cell because the team already solved
// this question".
type Outcome int

const (
	// OutcomeIncorrect: wrong answer, nothing changed.
	OutcomeIncorrect Outcome = iota
	// OutcomeDecoy: correct answer to a decoy question; no cell is granted.
	OutcomeDecoy
	// OutcomeAlreadySolved: correct answer the team already has credit for;
	// idempotent no-op.
	OutcomeAlreadySolved
	// OutcomeAssigned: correct answer to a real question; a free cell was
	// claimed (or the board was already full).
	OutcomeAssigned
)

// SubmissionResult is the outcome of one processed submission.
type SubmissionResult struct {
	Outcome          Outcome
	QuestionReal     bool
	AssignedPosition *Position // non-nil only for OutcomeAssigned with a free cell left
	LinesCompleted   int
	Winner           bool
}
