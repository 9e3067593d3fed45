package handlers

import (
	"net/http"

	"github.com/akozhin/matchup/middleware"
	"github.com/akozhin/matchup/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(matchService services.MatchService) *MatchHandler {
	return &MatchHandler{
		matchService: matchService,
	}
}

// ListHandler обрабатывает GET /matches — только публичные матчи.
func (h *MatchHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	page, perPage := parsePagination(r, 20, 50)

	matches, total, err := h.matchService.ListMatches(r.Context(), services.ListMatchesInput{
		SearchTerm: searchTermFromQuery(r),
		Limit:      perPage,
		Offset:     (page - 1) * perPage,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"matches":       matches,
		"total_matches": total,
		"page":          page,
		"pages":         totalPages(total, perPage),
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler обрабатывает GET /matches/{matchID}
func (h *MatchHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetMatchByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CreateHandler обрабатывает POST /matches
func (h *MatchHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.RequireScope(r.Context(), services.ScopeCreateMatch)
	if err != nil {
		guardErrorResponse(w, r, err)
		return
	}

	var input services.CreateMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.CreateMatch(r.Context(), actorFromIdentity(identity), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateHandler обрабатывает PATCH /matches/{matchID}: одно действие
// (join / disjoin / edit) за запрос.
func (h *MatchHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.RequireScope(r.Context(), services.ScopeUpdateMatch)
	if err != nil {
		guardErrorResponse(w, r, err)
		return
	}

	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdateMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.UpdateMatch(r.Context(), actorFromIdentity(identity), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	// join/disjoin подтверждаются без тела, edit возвращает матч целиком
	response := jsonResponse{"success": true}
	if match != nil {
		response["match"] = match
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteHandler обрабатывает DELETE /matches/{matchID}
func (h *MatchHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.RequireScope(r.Context(), services.ScopeDeleteMatch)
	if err != nil {
		guardErrorResponse(w, r, err)
		return
	}

	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.matchService.DeleteMatch(r.Context(), actorFromIdentity(identity), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
