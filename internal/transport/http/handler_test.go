package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trivia-bingo-service/internal/app"
	"trivia-bingo-service/internal/domain"
	"trivia-bingo-service/internal/infra/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.NewGameStore()
	store.AddRoom(domain.Room{Code: "TRIVIA", Title: "Trivia Night"})
	cache := memory.NewQuestionCache(memory.NewStaticQuestionLoader(map[string][]domain.Question{
		"TRIVIA": {
			{ID: 1, RoomCode: "TRIVIA", Text: "What is 2 + 2?", Answer: "4", IsReal: true},
			{ID: 2, RoomCode: "TRIVIA", Text: "Capital of France?", Answer: "Paris", IsReal: true},
			{ID: 3, RoomCode: "TRIVIA", Text: "Sides of a heptagon?", Answer: "7", IsReal: false},
		},
	}), time.Minute)
	service := app.NewGameService(store, cache, store, store, store, store)
	handler := NewHandler(service)

	mux := http.NewServeMux()
	handler.Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body map[string]any) (*http.Response, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func login(t *testing.T, server *httptest.Server, teamName string) string {
	t.Helper()
	resp, body := postJSON(t, server.URL+"/login", map[string]any{
		"room_code": "TRIVIA",
		"team_name": teamName,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d: %v", resp.StatusCode, body)
	}
	team, ok := body["team"].(map[string]any)
	if !ok {
		t.Fatalf("missing team in login response: %v", body)
	}
	id, _ := team["team_id"].(string)
	if id == "" {
		t.Fatalf("missing team id in login response: %v", team)
	}
	return id
}

func TestLoginEndpoint(t *testing.T) {
	server := newTestServer(t)

	resp, body := postJSON(t, server.URL+"/login", map[string]any{
		"room_code": "trivia", // lowercase gets normalized
		"team_name": "Alpha",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
	room := body["room"].(map[string]any)
	if room["code"] != "TRIVIA" {
		t.Fatalf("expected normalized room code, got %v", room["code"])
	}
	team := body["team"].(map[string]any)
	if team["score"].(float64) != 0 || team["isWinner"].(bool) {
		t.Fatalf("fresh team has unexpected state: %v", team)
	}
}

func TestLoginUnknownRoomReturns404(t *testing.T) {
	server := newTestServer(t)
	resp, body := postJSON(t, server.URL+"/login", map[string]any{
		"room_code": "NOPE",
		"team_name": "Alpha",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %v", resp.StatusCode, body)
	}
}

func TestLoginValidation(t *testing.T) {
	server := newTestServer(t)
	resp, _ := postJSON(t, server.URL+"/login", map[string]any{"room_code": "TRIVIA"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing team name, got %d", resp.StatusCode)
	}
}

func TestGameStateEndpoint(t *testing.T) {
	server := newTestServer(t)
	teamID := login(t, server, "Alpha")

	resp, body := getJSON(t, fmt.Sprintf("%s/game-state?room=TRIVIA&team=%s", server.URL, teamID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}

	questions := body["questions"].([]any)
	if len(questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(questions))
	}
	for _, raw := range questions {
		q := raw.(map[string]any)
		if q["grid_position"] != nil {
			t.Fatalf("cell must not be pre-announced: %v", q)
		}
		if _, hasAnswer := q["answer"]; hasAnswer {
			t.Fatalf("answer leaked to client: %v", q)
		}
	}
	if positions := body["solved_positions"].([]any); len(positions) != 0 {
		t.Fatalf("expected no solved positions, got %v", positions)
	}
	if body["gameEnded"].(bool) {
		t.Fatalf("untimed room must not be ended")
	}
}

func TestSubmitFlow(t *testing.T) {
	server := newTestServer(t)
	teamID := login(t, server, "Alpha")

	submit := func(questionID any, answer string) (int, map[string]any) {
		resp, body := postJSON(t, server.URL+"/submit", map[string]any{
			"room":       "TRIVIA",
			"teamId":     teamID,
			"questionId": questionID,
			"answer":     answer,
		})
		return resp.StatusCode, body
	}

	// Wrong answer.
	status, body := submit(1, "5")
	if status != http.StatusOK || body["correct"].(bool) {
		t.Fatalf("wrong answer: status %d body %v", status, body)
	}
	if body["assignedPosition"] != nil {
		t.Fatalf("wrong answer must not claim a cell: %v", body)
	}

	// Correct answer to a real question claims a cell.
	status, body = submit(1, " 4 ")
	if status != http.StatusOK || !body["correct"].(bool) {
		t.Fatalf("correct answer: status %d body %v", status, body)
	}
	pos, _ := body["assignedPosition"].(string)
	if !domain.ValidPosition(domain.Position(pos)) {
		t.Fatalf("expected a valid cell, got %q", pos)
	}
	if body["points"].(float64) != 10 {
		t.Fatalf("expected 10 points, got %v", body["points"])
	}

	// Re-submitting the same question is acknowledged without a new cell.
	status, body = submit(1, "4")
	if status != http.StatusOK || !body["correct"].(bool) {
		t.Fatalf("resubmit: status %d body %v", status, body)
	}
	if body["assignedPosition"] != nil {
		t.Fatalf("resubmit must not claim a cell: %v", body)
	}
	if body["message"] == nil {
		t.Fatalf("expected already-solved message, got %v", body)
	}

	// Decoy question: correct but no cell.
	status, body = submit(3, "7")
	if status != http.StatusOK || !body["correct"].(bool) || !body["isFake"].(bool) {
		t.Fatalf("decoy: status %d body %v", status, body)
	}
	if body["assignedPosition"] != nil {
		t.Fatalf("decoy must not claim a cell: %v", body)
	}

	// String question ids are accepted too.
	status, body = submit("2", "paris")
	if status != http.StatusOK || !body["correct"].(bool) {
		t.Fatalf("string id: status %d body %v", status, body)
	}

	// Unknown question.
	status, body = submit(42, "x")
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown question, got %d: %v", status, body)
	}
}

func TestSubmitValidation(t *testing.T) {
	server := newTestServer(t)
	teamID := login(t, server, "Alpha")

	// Missing answer field.
	resp, _ := postJSON(t, server.URL+"/submit", map[string]any{
		"room":       "TRIVIA",
		"teamId":     teamID,
		"questionId": 1,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing answer, got %d", resp.StatusCode)
	}

	// GET is not allowed.
	getResp, err := http.Get(server.URL + "/submit")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	getResp.Body.Close()
	if getResp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", getResp.StatusCode)
	}
}

func TestLeaderboardEndpoint(t *testing.T) {
	server := newTestServer(t)
	alphaID := login(t, server, "Alpha")
	login(t, server, "Beta")

	// Alpha solves one question, Beta stays at zero.
	postJSON(t, server.URL+"/submit", map[string]any{
		"room":       "TRIVIA",
		"teamId":     alphaID,
		"questionId": 1,
		"answer":     "4",
	})

	resp, body := getJSON(t, server.URL+"/leaderboard?room=TRIVIA")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
	rows := body["rows"].([]any)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	top := rows[0].(map[string]any)
	if top["rank"].(float64) != 1 {
		t.Fatalf("expected rank 1 first, got %v", top["rank"])
	}
	topTeam := top["team"].(map[string]any)
	if topTeam["team_name"] != "Alpha" {
		t.Fatalf("expected Alpha on top, got %v", topTeam["team_name"])
	}
	if topTeam["solved_questions_count"].(float64) != 1 {
		t.Fatalf("expected 1 solved question, got %v", topTeam["solved_questions_count"])
	}
}

func TestRecentSubmissionsEndpoint(t *testing.T) {
	server := newTestServer(t)
	teamID := login(t, server, "Alpha")

	postJSON(t, server.URL+"/submit", map[string]any{
		"room":       "TRIVIA",
		"teamId":     teamID,
		"questionId": 1,
		"answer":     "wrong",
	})
	postJSON(t, server.URL+"/submit", map[string]any{
		"room":       "TRIVIA",
		"teamId":     teamID,
		"questionId": 2,
		"answer":     "Paris",
	})

	resp, body := getJSON(t, server.URL+"/recent-submissions?room=TRIVIA")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
	rows := body["rows"].([]any)
	if len(rows) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(rows))
	}
	newest := rows[0].(map[string]any)
	if newest["questionId"].(float64) != 2 || !newest["isCorrect"].(bool) {
		t.Fatalf("expected newest attempt first, got %v", newest)
	}
	oldest := rows[1].(map[string]any)
	if oldest["isCorrect"].(bool) {
		t.Fatalf("expected incorrect attempt recorded, got %v", oldest)
	}
}
