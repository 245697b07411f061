package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/raterudder/gridbalancer/pkg/log"
	"github.com/raterudder/gridbalancer/pkg/storage"
	"github.com/raterudder/gridbalancer/pkg/types"
)

type statusResponse struct {
	GridID         string                 `json:"grid_id"`
	State          types.GridState        `json:"state"`
	StorageSOC     float64                `json:"storage_soc_percent"`
	StabilityIndex float64                `json:"stability_index"`
	Config         types.GridConfig       `json:"config"`
	Latest         *types.BalancingResult `json:"latest,omitempty"`
}

// gridID returns the gridID query parameter or the default grid.
func (s *Server) gridID(r *http.Request) string {
	if id := r.URL.Query().Get("gridID"); id != "" {
		return id
	}
	return s.grids.DefaultID()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	gridID := s.gridID(r)

	o, ok := s.grids.Lookup(gridID)
	if !ok {
		writeJSONError(w, "unknown grid", http.StatusNotFound)
		return
	}
	state := o.State()
	resp := statusResponse{
		GridID:         gridID,
		State:          state,
		StorageSOC:     types.Round2(state.StorageSOCPercent()),
		StabilityIndex: o.StabilityIndex(),
		Config:         o.Config(),
	}

	latest, err := s.storage.GetLatestBalancingResult(ctx, gridID)
	switch {
	case err == nil:
		rounded := latest.Rounded()
		resp.Latest = &rounded
	case errors.Is(err, storage.ErrNotFound):
	default:
		log.Ctx(ctx).ErrorContext(ctx, "failed to get latest balancing result", slog.String("gridID", gridID), slog.Any("error", err))
		writeJSONError(w, "failed to get latest balancing result", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, resp)
}

func (s *Server) handleDemandForecast(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "private, max-age=60")
	writeJSON(w, s.demand.Forecast24h(r.Context()))
}
