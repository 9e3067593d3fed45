package handlers

import (
	"fmt"
	"net/http"

	"github.com/akozhin/matchup/middleware"
	"github.com/akozhin/matchup/services"
)

type GameHandler struct {
	gameService services.GameService
}

func NewGameHandler(gameService services.GameService) *GameHandler {
	return &GameHandler{
		gameService: gameService,
	}
}

// ListHandler обрабатывает GET /games
func (h *GameHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	page, perPage := parsePagination(r, 50, 100)

	games, total, err := h.gameService.ListGames(r.Context(), services.ListGamesInput{
		SearchTerm: searchTermFromQuery(r),
		Limit:      perPage,
		Offset:     (page - 1) * perPage,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"games":       games,
		"total_games": total,
		"page":        page,
		"pages":       totalPages(total, perPage),
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler обрабатывает GET /games/{gameID}
func (h *GameHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	game, err := h.gameService.GetGameByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"game": game}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CreateHandler обрабатывает POST /games. Повтор имени — не ошибка:
// отвечаем 303 See Other с адресом существующей игры.
func (h *GameHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var input services.CreateGameInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	game, existing, err := h.gameService.CreateGame(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if existing {
		headers := http.Header{}
		headers.Set("Location", fmt.Sprintf("/games/%d", game.ID))
		if err := writeJSON(w, http.StatusSeeOther, jsonResponse{"game": game}, headers); err != nil {
			serverErrorResponse(w, r, err)
		}
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"game": game}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateHandler обрабатывает PATCH /games/{gameID}
func (h *GameHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.RequireScope(r.Context(), services.ScopeUpdateGame); err != nil {
		guardErrorResponse(w, r, err)
		return
	}

	id, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdateGameInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	game, err := h.gameService.UpdateGame(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"game": game}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteHandler обрабатывает DELETE /games/{gameID}
func (h *GameHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.RequireScope(r.Context(), services.ScopeDeleteGame); err != nil {
		guardErrorResponse(w, r, err)
		return
	}

	id, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.gameService.DeleteGame(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadCoverHandler обрабатывает POST /games/{gameID}/cover
func (h *GameHandler) UploadCoverHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.RequireScope(r.Context(), services.ScopeUpdateGame); err != nil {
		guardErrorResponse(w, r, err)
		return
	}

	id, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	const maxCoverSize = 5 << 20 // 5MB
	r.Body = http.MaxBytesReader(w, r.Body, maxCoverSize)
	if err := r.ParseMultipartForm(maxCoverSize); err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to parse multipart form: %w", err))
		return
	}

	file, header, err := r.FormFile("cover")
	if err != nil {
		badRequestResponse(w, r, fmt.Errorf("cover file is required: %w", err))
		return
	}
	defer file.Close()

	game, err := h.gameService.UploadCover(r.Context(), id, header.Header.Get("Content-Type"), file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"game": game}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
