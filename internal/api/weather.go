package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Zchasse63/voice-fit-sub003/internal/weather"
)

// weatherHandler answers run-conditions queries.
type weatherHandler struct {
	client *weather.Client
	logger *slog.Logger
}

// getWeather handles GET /api/v1/weather?lat=&lon=.
func (h *weatherHandler) getWeather(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r, h.logger); !ok {
		return
	}

	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if latErr != nil || lonErr != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		WriteError(w, http.StatusBadRequest, "invalid_coordinates", "lat and lon must be valid coordinates", h.logger)
		return
	}

	cond, err := h.client.Current(r.Context(), lat, lon)
	if err != nil {
		var apiErr *weather.APIError
		if errors.As(err, &apiErr) {
			h.logger.Warn("weather provider error", "status", apiErr.Status)
		} else {
			h.logger.Error("fetching weather", "error", err)
		}
		WriteError(w, http.StatusBadGateway, "provider_error", "weather provider unavailable", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, cond, h.logger)
}
