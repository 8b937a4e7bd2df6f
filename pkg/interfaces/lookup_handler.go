package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/liav/songbook/pkg/domain"
)

type LookupHandler struct {
	service domain.LookupService
	logger  zerolog.Logger
}

func NewLookupHandler(service domain.LookupService, logger zerolog.Logger) *LookupHandler {
	return &LookupHandler{
		service: service,
		logger:  logger,
	}
}

func (h *LookupHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/songs", h.LookupSongs).Methods("GET")
}

func (h *LookupHandler) LookupSongs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	name := r.URL.Query().Get("artist")

	page := 1
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		parsed, err := strconv.Atoi(pageStr)
		if err != nil {
			h.respondWithError(w, http.StatusUnprocessableEntity, "page must be an integer")
			return
		}
		page = parsed
	}

	perPage := MaxPerPage
	if perPageStr := r.URL.Query().Get("per_page"); perPageStr != "" {
		parsed, err := strconv.Atoi(perPageStr)
		if err != nil {
			h.respondWithError(w, http.StatusUnprocessableEntity, "per_page must be an integer")
			return
		}
		perPage = parsed
	}

	result, err := h.service.Lookup(ctx, name, page, perPage)
	if err != nil {
		h.respondWithLookupError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, result)
}

func (h *LookupHandler) respondWithLookupError(w http.ResponseWriter, err error) {
	var validationErr domain.ValidationError
	var statusErr domain.UpstreamStatusError

	switch {
	case errors.As(err, &validationErr):
		h.respondWithError(w, http.StatusUnprocessableEntity, validationErr.Error())
	case errors.Is(err, domain.ErrArtistNotFound):
		h.respondWithError(w, http.StatusNotFound, "artist not found")
	case errors.Is(err, domain.ErrUpstreamTimeout):
		h.respondWithError(w, http.StatusGatewayTimeout, "catalog request timed out")
	case errors.Is(err, domain.ErrUpstreamAuth):
		h.respondWithError(w, http.StatusBadGateway, "catalog rejected our credentials")
	case errors.Is(err, domain.ErrUpstreamThrottled):
		h.respondWithError(w, http.StatusBadGateway, "catalog rate limit exceeded")
	case errors.Is(err, domain.ErrUpstreamFormat):
		h.respondWithError(w, http.StatusBadGateway, "catalog returned an unreadable response")
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		h.respondWithError(w, http.StatusBadGateway, "catalog unavailable")
	case errors.As(err, &statusErr):
		h.respondWithError(w, http.StatusBadGateway, "catalog rejected the request")
	default:
		h.logger.Error().Err(err).Msg("unexpected lookup failure")
		h.respondWithError(w, http.StatusInternalServerError, "unexpected error")
	}
}

func (h *LookupHandler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]string{"error": message})
}

func (h *LookupHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
