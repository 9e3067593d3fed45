package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/akozhin/matchup/middleware"
	"github.com/akozhin/matchup/services"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v4"
)

var testJWTSecret = "handler-test-secret"

type mockMatchService struct {
	createMatchFunc func(ctx context.Context, actor services.Actor, input services.CreateMatchInput) (*services.MatchView, error)
	getMatchFunc    func(ctx context.Context, id int) (*services.MatchView, error)
	listMatchesFunc func(ctx context.Context, input services.ListMatchesInput) ([]services.MatchSummary, int, error)
	updateMatchFunc func(ctx context.Context, actor services.Actor, matchID int, input services.UpdateMatchInput) (*services.MatchView, error)
	deleteMatchFunc func(ctx context.Context, actor services.Actor, matchID int) error
}

func (m *mockMatchService) CreateMatch(ctx context.Context, actor services.Actor, input services.CreateMatchInput) (*services.MatchView, error) {
	return m.createMatchFunc(ctx, actor, input)
}

func (m *mockMatchService) GetMatchByID(ctx context.Context, id int) (*services.MatchView, error) {
	return m.getMatchFunc(ctx, id)
}

func (m *mockMatchService) ListMatches(ctx context.Context, input services.ListMatchesInput) ([]services.MatchSummary, int, error) {
	return m.listMatchesFunc(ctx, input)
}

func (m *mockMatchService) UpdateMatch(ctx context.Context, actor services.Actor, matchID int, input services.UpdateMatchInput) (*services.MatchView, error) {
	return m.updateMatchFunc(ctx, actor, matchID, input)
}

func (m *mockMatchService) DeleteMatch(ctx context.Context, actor services.Actor, matchID int) error {
	return m.deleteMatchFunc(ctx, actor, matchID)
}

func newMatchTestRouter(svc services.MatchService) *chi.Mux {
	h := NewMatchHandler(svc)
	router := chi.NewRouter()
	router.Use(middleware.Authenticate([]byte(testJWTSecret)))
	router.Route("/matches", func(r chi.Router) {
		r.Get("/", h.ListHandler)
		r.Post("/", h.CreateHandler)
		r.Get("/{matchID}", h.GetByIDHandler)
		r.Patch("/{matchID}", h.UpdateHandler)
		r.Delete("/{matchID}", h.DeleteHandler)
	})
	return router
}

func bearerToken(t *testing.T, userID int, permissions ...string) string {
	t.Helper()
	perms := make([]interface{}, 0, len(permissions))
	for _, p := range permissions {
		perms = append(perms, p)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":     float64(userID),
		"permissions": perms,
		"exp":         time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return "Bearer " + signed
}

func TestUpdateMatchJoinAck(t *testing.T) {
	var gotInput services.UpdateMatchInput
	var gotActor services.Actor
	svc := &mockMatchService{
		updateMatchFunc: func(ctx context.Context, actor services.Actor, matchID int, input services.UpdateMatchInput) (*services.MatchView, error) {
			gotActor = actor
			gotInput = input
			return nil, nil
		},
	}
	router := newMatchTestRouter(svc)

	req := httptest.NewRequest(http.MethodPatch, "/matches/5", strings.NewReader(`{"action":"join"}`))
	req.Header.Set("Authorization", bearerToken(t, 7, services.ScopeUpdateMatch))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if gotActor.UserID != 7 {
		t.Errorf("expected actor 7, got %d", gotActor.UserID)
	}
	if gotInput.Action != services.ActionJoin {
		t.Errorf("expected join action, got %q", gotInput.Action)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["success"] != true {
		t.Error("expected success=true acknowledgement")
	}
	if _, ok := body["match"]; ok {
		t.Error("join acknowledgement must not carry a match body")
	}
}

func TestUpdateMatchEditReturnsMatch(t *testing.T) {
	svc := &mockMatchService{
		updateMatchFunc: func(ctx context.Context, actor services.Actor, matchID int, input services.UpdateMatchInput) (*services.MatchView, error) {
			return &services.MatchView{ID: matchID, Code: "mAb12c", Name: "Renamed"}, nil
		},
	}
	router := newMatchTestRouter(svc)

	req := httptest.NewRequest(http.MethodPatch, "/matches/5", strings.NewReader(`{"action":"edit","name":"Renamed"}`))
	req.Header.Set("Authorization", bearerToken(t, 7, services.ScopeUpdateMatch))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body struct {
		Success bool                `json:"success"`
		Match   *services.MatchView `json:"match"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Match == nil || body.Match.Name != "Renamed" {
		t.Errorf("expected the edited match in the response, got %+v", body.Match)
	}
}

func TestUpdateMatchRejectsAnonymous(t *testing.T) {
	router := newMatchTestRouter(&mockMatchService{})

	req := httptest.NewRequest(http.MethodPatch, "/matches/5", strings.NewReader(`{"action":"join"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}
	env := decodeErrorEnvelope(t, rec)
	if env.Success || env.Error != http.StatusUnauthorized {
		t.Errorf("unexpected envelope: %+v", env)
	}
}

func TestUpdateMatchRejectsMissingScope(t *testing.T) {
	router := newMatchTestRouter(&mockMatchService{})

	req := httptest.NewRequest(http.MethodPatch, "/matches/5", strings.NewReader(`{"action":"join"}`))
	req.Header.Set("Authorization", bearerToken(t, 7, services.ScopeCreateMatch))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without update:match, got %d", rec.Code)
	}
}

func TestUpdateMatchMapsActionErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing action", services.ErrActionRequired, http.StatusBadRequest},
		{"unsupported action", services.ErrUnsupportedAction, http.StatusBadRequest},
		{"match full", services.ErrMatchFull, http.StatusConflict},
		{"already joined", services.ErrAlreadyJoined, http.StatusConflict},
		{"foreign match", services.ErrForbiddenOperation, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockMatchService{
				updateMatchFunc: func(ctx context.Context, actor services.Actor, matchID int, input services.UpdateMatchInput) (*services.MatchView, error) {
					return nil, tt.err
				},
			}
			router := newMatchTestRouter(svc)

			req := httptest.NewRequest(http.MethodPatch, "/matches/5", strings.NewReader(`{"action":"join"}`))
			req.Header.Set("Authorization", bearerToken(t, 7, services.ScopeUpdateMatch))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d (body: %s)", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCreateMatchReturnsCreated(t *testing.T) {
	svc := &mockMatchService{
		createMatchFunc: func(ctx context.Context, actor services.Actor, input services.CreateMatchInput) (*services.MatchView, error) {
			return &services.MatchView{ID: 9, Code: "mXy34Z", Name: input.Name, CreatorID: actor.UserID}, nil
		},
	}
	router := newMatchTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/matches", strings.NewReader(`{"name":"Friday night"}`))
	req.Header.Set("Authorization", bearerToken(t, 7, services.ScopeCreateMatch))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body struct {
		Match *services.MatchView `json:"match"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Match == nil || body.Match.Code != "mXy34Z" || body.Match.CreatorID != 7 {
		t.Errorf("unexpected match in response: %+v", body.Match)
	}
}

func TestDeleteMatchNoContent(t *testing.T) {
	svc := &mockMatchService{
		deleteMatchFunc: func(ctx context.Context, actor services.Actor, matchID int) error {
			return nil
		},
	}
	router := newMatchTestRouter(svc)

	req := httptest.NewRequest(http.MethodDelete, "/matches/5", nil)
	req.Header.Set("Authorization", bearerToken(t, 7, services.ScopeDeleteMatch))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestListMatchesResponseShape(t *testing.T) {
	svc := &mockMatchService{
		listMatchesFunc: func(ctx context.Context, input services.ListMatchesInput) ([]services.MatchSummary, int, error) {
			return []services.MatchSummary{{ID: 1, Code: "mAb12c", Name: "Open lobby"}}, 41, nil
		},
	}
	router := newMatchTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/matches?page=2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Matches      []services.MatchSummary `json:"matches"`
		TotalMatches int                     `json:"total_matches"`
		Page         int                     `json:"page"`
		Pages        int                     `json:"pages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(body.Matches) != 1 || body.TotalMatches != 41 {
		t.Errorf("unexpected listing: %+v", body)
	}
	if body.Page != 2 || body.Pages != 3 {
		t.Errorf("expected page 2 of 3, got page %d of %d", body.Page, body.Pages)
	}
}
