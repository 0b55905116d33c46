package app

import (
	"context"
	"fmt"

	"trivia-bingo-service/internal/domain"
)

// The hint-mapping bootstrap predates assign-on-solve scoring and survives
// for display/compat reasons only: it gives every team a stable, seemingly
// random question-to-cell map without ever touching scoring state. Both entry
// points are additive and idempotent; existing rows are never reassigned.

// SeedMapping zips up to 25 of the room's questions with the 25 grid cells,
// both shuffled deterministically by the team id, and stores the pairs that
// do not collide with existing assignments.
func (s *GameService) SeedMapping(ctx context.Context, teamID, roomCode string) error {
	questions, err := s.questions.QuestionsByRoom(ctx, roomCode)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		return nil
	}
	if len(questions) > 25 {
		questions = questions[:25]
	}

	shuffledQuestions := SeededShuffle(questions, teamID)
	shuffledPositions := SeededShuffle(domain.AllPositions(), teamID+"-grid")

	n := len(shuffledQuestions)
	if n > len(shuffledPositions) {
		n = len(shuffledPositions)
	}
	for i := 0; i < n; i++ {
		assignment := domain.GridAssignment{
			TeamID:     teamID,
			QuestionID: shuffledQuestions[i].ID,
			Position:   shuffledPositions[i],
		}
		if err := s.assignments.AddAssignment(ctx, assignment); err != nil {
			return fmt.Errorf("add assignment: %w", err)
		}
	}
	return nil
}

// FillMappingGaps assigns not-yet-mapped questions to unused cells, skipping
// cells the team has already solved. Remainders on both sides are shuffled
// with the same deterministic scheme so a team's board stays reproducible.
func (s *GameService) FillMappingGaps(ctx context.Context, teamID, roomCode string) error {
	existing, err := s.assignments.AssignmentsForTeam(ctx, teamID)
	if err != nil {
		return fmt.Errorf("load assignments: %w", err)
	}
	mappedQuestions := make(map[int]struct{}, len(existing))
	usedPositions := make(map[domain.Position]struct{}, len(existing))
	for _, a := range existing {
		mappedQuestions[a.QuestionID] = struct{}{}
		usedPositions[a.Position] = struct{}{}
	}

	solved, err := s.progress.SolvedPositions(ctx, teamID)
	if err != nil {
		return fmt.Errorf("load solved positions: %w", err)
	}
	for _, p := range solved {
		usedPositions[p] = struct{}{}
	}

	questions, err := s.questions.QuestionsByRoom(ctx, roomCode)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	var unmapped []domain.Question
	for _, q := range questions {
		if _, ok := mappedQuestions[q.ID]; !ok {
			unmapped = append(unmapped, q)
		}
	}
	var available []domain.Position
	for _, p := range domain.AllPositions() {
		if _, ok := usedPositions[p]; !ok {
			available = append(available, p)
		}
	}

	unmapped = SeededShuffle(unmapped, teamID)
	available = SeededShuffle(available, teamID+"-pos")

	n := len(unmapped)
	if n > len(available) {
		n = len(available)
	}
	for i := 0; i < n; i++ {
		assignment := domain.GridAssignment{
			TeamID:     teamID,
			QuestionID: unmapped[i].ID,
			Position:   available[i],
		}
		if err := s.assignments.AddAssignment(ctx, assignment); err != nil {
			return fmt.Errorf("add assignment: %w", err)
		}
	}
	return nil
}
