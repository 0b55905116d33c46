package memory

import (
	"context"
	"sync"
	"time"

	"trivia-bingo-service/internal/app"
	"trivia-bingo-service/internal/domain"
)

// GameStore is an in-memory implementation of the room, team, progress,
// attempt, and assignment ports. It backs the demo mode and unit tests.
// Transactions are serialized with one mutex per team and staged so that a
// failed transaction leaves no partial state.
type GameStore struct {
	mu              sync.RWMutex
	rooms           map[string]domain.Room
	teams           map[string]*domain.Team
	teamsByName     map[string]map[string]string // room -> name -> latest team id
	solvedQuestions map[string]map[int]time.Time
	solvedPositions map[string]map[domain.Position]struct{}
	assignments     map[string][]domain.GridAssignment
	attempts        []domain.Attempt

	lockMu    sync.Mutex
	teamLocks map[string]*sync.Mutex
}

func NewGameStore() *GameStore {
	return &GameStore{
		rooms:           make(map[string]domain.Room),
		teams:           make(map[string]*domain.Team),
		teamsByName:     make(map[string]map[string]string),
		solvedQuestions: make(map[string]map[int]time.Time),
		solvedPositions: make(map[string]map[domain.Position]struct{}),
		assignments:     make(map[string][]domain.GridAssignment),
		teamLocks:       make(map[string]*sync.Mutex),
	}
}

// AddRoom seeds a room; rooms are otherwise owned by the admin panel.
func (s *GameStore) AddRoom(room domain.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.Code] = room
}

func (s *GameStore) GetRoom(_ context.Context, code string) (domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return room, nil
}

func (s *GameStore) GetTeam(_ context.Context, teamID string) (domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	team, ok := s.teams[teamID]
	if !ok {
		return domain.Team{}, domain.ErrTeamNotFound
	}
	return *team, nil
}

func (s *GameStore) GetTeamByName(_ context.Context, roomCode, name string) (domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if byName, ok := s.teamsByName[roomCode]; ok {
		if id, ok := byName[name]; ok {
			return *s.teams[id], nil
		}
	}
	return domain.Team{}, domain.ErrTeamNotFound
}

func (s *GameStore) CreateTeam(_ context.Context, team domain.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := team
	s.teams[team.ID] = &copied
	if _, ok := s.teamsByName[team.RoomCode]; !ok {
		s.teamsByName[team.RoomCode] = make(map[string]string)
	}
	s.teamsByName[team.RoomCode][team.Name] = team.ID
	return nil
}

func (s *GameStore) TeamsByRoom(_ context.Context, roomCode string) ([]domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var teams []domain.Team
	for _, team := range s.teams {
		if team.RoomCode == roomCode {
			teams = append(teams, *team)
		}
	}
	return teams, nil
}

func (s *GameStore) SolvedPositions(_ context.Context, teamID string) ([]domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.solvedPositionsLocked(teamID), nil
}

func (s *GameStore) solvedPositionsLocked(teamID string) []domain.Position {
	positions := make([]domain.Position, 0, len(s.solvedPositions[teamID]))
	// Canonical order keeps reads deterministic.
	for _, p := range domain.AllPositions() {
		if _, ok := s.solvedPositions[teamID][p]; ok {
			positions = append(positions, p)
		}
	}
	return positions
}

func (s *GameStore) SolvedQuestions(_ context.Context, teamID string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int, 0, len(s.solvedQuestions[teamID]))
	for id := range s.solvedQuestions[teamID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *GameStore) HasSolvedQuestion(_ context.Context, teamID string, questionID int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.solvedQuestions[teamID][questionID]
	return ok, nil
}

func (s *GameStore) SolvedQuestionCounts(_ context.Context, roomCode string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for id, team := range s.teams {
		if team.RoomCode == roomCode {
			counts[id] = len(s.solvedQuestions[id])
		}
	}
	return counts, nil
}

// InTeamTx serializes fn against other transactions for the same team and
// applies its staged mutations only when fn succeeds.
func (s *GameStore) InTeamTx(ctx context.Context, teamID string, fn func(tx app.ProgressTx) error) error {
	lock := s.teamLock(teamID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	_, ok := s.teams[teamID]
	s.mu.RUnlock()
	if !ok {
		return domain.ErrTeamNotFound
	}

	tx := &memTx{store: s, teamID: teamID, marked: make(map[int]time.Time)}
	if err := fn(tx); err != nil {
		return err
	}
	tx.apply()
	return nil
}

func (s *GameStore) teamLock(teamID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.teamLocks[teamID]
	if !ok {
		lock = &sync.Mutex{}
		s.teamLocks[teamID] = lock
	}
	return lock
}

// memTx stages mutations for one team until apply.
type memTx struct {
	store   *GameStore
	teamID  string
	marked  map[int]time.Time
	claimed []domain.Position
	lines   *int
	endTime *time.Time
}

func (tx *memTx) MarkQuestionSolved(_ context.Context, teamID string, questionID int, at time.Time) (bool, error) {
	tx.store.mu.RLock()
	_, committed := tx.store.solvedQuestions[teamID][questionID]
	tx.store.mu.RUnlock()
	if committed {
		return false, nil
	}
	if _, staged := tx.marked[questionID]; staged {
		return false, nil
	}
	tx.marked[questionID] = at
	return true, nil
}

func (tx *memTx) SolvedPositions(_ context.Context, teamID string) ([]domain.Position, error) {
	tx.store.mu.RLock()
	positions := tx.store.solvedPositionsLocked(teamID)
	tx.store.mu.RUnlock()
	return append(positions, tx.claimed...), nil
}

func (tx *memTx) ClaimPosition(_ context.Context, teamID string, pos domain.Position) error {
	tx.store.mu.RLock()
	_, committed := tx.store.solvedPositions[teamID][pos]
	tx.store.mu.RUnlock()
	if committed {
		return domain.ErrPositionTaken
	}
	for _, claimed := range tx.claimed {
		if claimed == pos {
			return domain.ErrPositionTaken
		}
	}
	tx.claimed = append(tx.claimed, pos)
	return nil
}

func (tx *memTx) UpdateLineCount(_ context.Context, _ string, lines int) error {
	tx.lines = &lines
	return nil
}

func (tx *memTx) SetEndTimeIfUnset(_ context.Context, _ string, at time.Time) error {
	tx.endTime = &at
	return nil
}

func (tx *memTx) apply() {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(tx.marked) > 0 {
		if _, ok := s.solvedQuestions[tx.teamID]; !ok {
			s.solvedQuestions[tx.teamID] = make(map[int]time.Time)
		}
		for id, at := range tx.marked {
			s.solvedQuestions[tx.teamID][id] = at
		}
	}
	if len(tx.claimed) > 0 {
		if _, ok := s.solvedPositions[tx.teamID]; !ok {
			s.solvedPositions[tx.teamID] = make(map[domain.Position]struct{})
		}
		for _, p := range tx.claimed {
			s.solvedPositions[tx.teamID][p] = struct{}{}
		}
	}
	team := s.teams[tx.teamID]
	if tx.lines != nil {
		team.LinesCompleted = *tx.lines
	}
	if tx.endTime != nil && team.EndTime == nil {
		at := *tx.endTime
		team.EndTime = &at
	}
}

func (s *GameStore) Append(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt.ID = int64(len(s.attempts) + 1)
	s.attempts = append(s.attempts, attempt)
	return nil
}

func (s *GameStore) RecentByRoom(_ context.Context, roomCode string, limit int) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var recent []domain.Attempt
	for i := len(s.attempts) - 1; i >= 0 && len(recent) < limit; i-- {
		if s.attempts[i].RoomCode == roomCode {
			recent = append(recent, s.attempts[i])
		}
	}
	return recent, nil
}

func (s *GameStore) AssignmentsForTeam(_ context.Context, teamID string) ([]domain.GridAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.GridAssignment(nil), s.assignments[teamID]...), nil
}

func (s *GameStore) AddAssignment(_ context.Context, assignment domain.GridAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.assignments[assignment.TeamID] {
		if existing.QuestionID == assignment.QuestionID || existing.Position == assignment.Position {
			// additive mapping: duplicate question or cell pairs are ignored
			return nil
		}
	}
	s.assignments[assignment.TeamID] = append(s.assignments[assignment.TeamID], assignment)
	return nil
}
