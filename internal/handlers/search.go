// internal/handlers/search.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/restaurant-roulette/server/internal/search"
)

// SearchHandler proxies the UI's restaurant search to the configured
// provider. Only the host's client calls this, before it spins; the
// relay itself never waits on the provider.
func SearchHandler(svc *search.Service, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Location string `json:"location"`
			Mood     string `json:"mood"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Location = strings.TrimSpace(req.Location)
		req.Mood = strings.TrimSpace(req.Mood)
		if req.Location == "" || req.Mood == "" {
			writeError(w, http.StatusBadRequest, "Both location and mood are required")
			return
		}

		result, err := svc.Search(r.Context(), req.Location, req.Mood)
		if err != nil {
			logger.Warnf("restaurant search failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Restaurant search failed")
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}
