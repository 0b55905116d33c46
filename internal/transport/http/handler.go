package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"trivia-bingo-service/internal/app"
	"trivia-bingo-service/internal/domain"
)

const recentAttemptsLimit = 20

// Handler exposes the game use cases as a polling JSON API.
type Handler struct {
	service *app.GameService
}

func NewHandler(service *app.GameService) *Handler {
	return &Handler{service: service}
}

// Register wires the game routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/login", h.handleLogin)
	mux.HandleFunc("/game-state", h.handleGameState)
	mux.HandleFunc("/submit", h.handleSubmit)
	mux.HandleFunc("/leaderboard", h.handleLeaderboard)
	mux.HandleFunc("/recent-submissions", h.handleRecentSubmissions)
}

type roomPayload struct {
	Code       string  `json:"code"`
	Title      string  `json:"title"`
	RoundEndAt *string `json:"roundEndAt"`
}

type teamPayload struct {
	ID          string  `json:"id"`
	TeamID      string  `json:"team_id"`
	Name        string  `json:"name"`
	Score       int     `json:"score"`
	CompletedAt *string `json:"completedAt"`
	IsWinner    bool    `json:"isWinner"`
}

type errorPayload struct {
	Error string `json:"error"`
}

func roomToPayload(room domain.Room) roomPayload {
	return roomPayload{
		Code:       room.Code,
		Title:      room.Title,
		RoundEndAt: timePtr(room.RoundEndAt),
	}
}

func teamToPayload(team domain.Team) teamPayload {
	return teamPayload{
		ID:          team.ID,
		TeamID:      team.ID,
		Name:        team.Name,
		Score:       team.Score(),
		CompletedAt: timePtr(team.EndTime),
		IsWinner:    team.Winner(),
	}
}

func timePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

type loginRequest struct {
	RoomCode string `json:"room_code"`
	TeamName string `json:"team_name"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.RoomCode == "" || req.TeamName == "" {
		writeError(w, http.StatusBadRequest, "Room and team name required")
		return
	}

	team, room, err := h.service.Login(r.Context(), req.RoomCode, req.TeamName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"team": teamToPayload(team),
		"room": roomToPayload(room),
	})
}

type questionPayload struct {
	ID           string   `json:"id"`
	QuestionID   int      `json:"question_id"`
	Text         string   `json:"text"`
	QuestionText string   `json:"question_text"`
	Options      []string `json:"options"`
	Points       int      `json:"points"`
	IsReal       bool     `json:"is_real"`
	GridPosition *string  `json:"grid_position"`
}

func (h *Handler) handleGameState(w http.ResponseWriter, r *http.Request) {
	roomCode := r.URL.Query().Get("room")
	teamID := r.URL.Query().Get("team")
	if roomCode == "" || teamID == "" {
		writeError(w, http.StatusBadRequest, "Room code and team ID required")
		return
	}

	state, err := h.service.GameState(r.Context(), roomCode, teamID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	questions := make([]questionPayload, 0, len(state.Questions))
	for _, q := range state.Questions {
		questions = append(questions, questionPayload{
			ID:           strconv.Itoa(q.ID),
			QuestionID:   q.ID,
			Text:         q.Text,
			QuestionText: q.Text,
			Options:      []string{},
			Points:       10,
			IsReal:       q.IsReal,
			// positions are assigned randomly on solve, never pre-announced
			GridPosition: nil,
		})
	}
	positions := make([]string, 0, len(state.SolvedPositions))
	for _, p := range state.SolvedPositions {
		positions = append(positions, string(p))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"room":                 roomToPayload(state.Room),
		"team":                 teamToPayload(state.Team),
		"questions":            questions,
		"solved_positions":     positions,
		"currentQuestionIndex": 0,
		"gameStarted":          true,
		"gameEnded":            state.GameEnded,
		"timeRemaining":        state.TimeRemaining,
	})
}

// flexID accepts a question id sent either as a JSON number or a numeric
// string, which older clients still do.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		s = ""
	}
	*f = flexID(s)
	return nil
}

func (f flexID) Int() (int, error) {
	return strconv.Atoi(string(f))
}

type submitRequest struct {
	Room          string  `json:"room"`
	TeamID        string  `json:"teamId"`
	QuestionID    flexID  `json:"questionId"`
	QuestionIDAlt flexID  `json:"question_id"`
	Answer        *string `json:"answer"`
}

type achievementPayload struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type submitResponse struct {
	Correct          bool                `json:"correct"`
	Points           int                 `json:"points"`
	NewScore         int                 `json:"newScore"`
	IsFake           bool                `json:"isFake"`
	AssignedPosition *string             `json:"assignedPosition"`
	Achievement      *achievementPayload `json:"achievement,omitempty"`
	Message          string              `json:"message,omitempty"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	rawID := req.QuestionID
	if rawID == "" {
		rawID = req.QuestionIDAlt
	}
	if req.Room == "" || req.TeamID == "" || rawID == "" || req.Answer == nil {
		writeError(w, http.StatusBadRequest, "Room, team ID, question ID, and answer required")
		return
	}
	questionID, err := rawID.Int()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid question ID")
		return
	}

	result, err := h.service.Submit(r.Context(), req.Room, req.TeamID, questionID, *req.Answer)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := submitResponse{
		NewScore: result.LinesCompleted * 10,
	}
	switch result.Outcome {
	case domain.OutcomeIncorrect:
		resp.IsFake = !result.QuestionReal
	case domain.OutcomeDecoy:
		resp.Correct = true
		resp.IsFake = true
	case domain.OutcomeAlreadySolved:
		resp.Correct = true
		resp.Message = "You already solved this question!"
	case domain.OutcomeAssigned:
		resp.Correct = true
		resp.Points = 10
		if result.AssignedPosition != nil {
			pos := string(*result.AssignedPosition)
			resp.AssignedPosition = &pos
		}
		if result.Winner {
			resp.Achievement = &achievementPayload{
				ID:          "bingo-master",
				Title:       "Bingo Master",
				Description: "Completed 5 lines!",
				Icon:        "🏆",
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type leaderboardTeamPayload struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Score          int     `json:"score"`
	CompletedAt    *string `json:"completedAt"`
	IsWinner       bool    `json:"isWinner"`
	TeamID         string  `json:"team_id"`
	TeamName       string  `json:"team_name"`
	LinesCompleted int     `json:"lines_completed"`
	StartTime      *string `json:"start_time"`
	EndTime        *string `json:"end_time"`
	TimeTakenMs    *int64  `json:"time_taken_ms"`
	SolvedCount    int     `json:"solved_questions_count"`
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	roomCode := r.URL.Query().Get("room")
	if roomCode == "" {
		writeError(w, http.StatusBadRequest, "Room code required")
		return
	}

	rows, err := h.service.Leaderboard(r.Context(), roomCode)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	payload := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		start := row.Team.StartTime
		team := leaderboardTeamPayload{
			ID:             row.Team.ID,
			Name:           row.Team.Name,
			Score:          row.Team.Score(),
			CompletedAt:    timePtr(row.Team.EndTime),
			IsWinner:       row.Team.Winner(),
			TeamID:         row.Team.ID,
			TeamName:       row.Team.Name,
			LinesCompleted: row.Team.LinesCompleted,
			StartTime:      timePtr(&start),
			EndTime:        timePtr(row.Team.EndTime),
			SolvedCount:    row.SolvedCount,
		}
		if taken, done := row.Team.TimeTaken(); done {
			ms := taken.Milliseconds()
			team.TimeTakenMs = &ms
		}
		payload = append(payload, map[string]any{
			"team": team,
			"rank": row.Rank,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": payload})
}

type attemptPayload struct {
	TeamID          string  `json:"teamId"`
	QuestionID      int     `json:"questionId"`
	SubmittedAnswer string  `json:"submittedAnswer"`
	IsCorrect       bool    `json:"isCorrect"`
	Position        *string `json:"position"`
	SolvedAt        string  `json:"solvedAt"`
}

func (h *Handler) handleRecentSubmissions(w http.ResponseWriter, r *http.Request) {
	roomCode := r.URL.Query().Get("room")
	if roomCode == "" {
		writeError(w, http.StatusBadRequest, "Room code required")
		return
	}

	attempts, err := h.service.RecentAttempts(r.Context(), roomCode, recentAttemptsLimit)
	if err != nil {
		// Non-critical activity feed: an empty list keeps clients working.
		log.Printf("recent submissions for room %s: %v", roomCode, err)
		writeJSON(w, http.StatusOK, map[string]any{"rows": []attemptPayload{}})
		return
	}

	rows := make([]attemptPayload, 0, len(attempts))
	for _, a := range attempts {
		rows = append(rows, attemptPayload{
			TeamID:          a.TeamID,
			QuestionID:      a.QuestionID,
			SubmittedAnswer: a.Answer,
			IsCorrect:       a.Correct,
			SolvedAt:        a.AttemptedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, "Room not found")
	case errors.Is(err, domain.ErrTeamNotFound):
		writeError(w, http.StatusNotFound, "Team not found")
	case errors.Is(err, domain.ErrQuestionNotFound):
		writeError(w, http.StatusNotFound, "Question not found")
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorPayload{Error: message})
}

