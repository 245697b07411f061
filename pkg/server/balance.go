package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/raterudder/gridbalancer/pkg/grid"
	"github.com/raterudder/gridbalancer/pkg/log"
	"github.com/raterudder/gridbalancer/pkg/metrics"
	"github.com/raterudder/gridbalancer/pkg/report"
	"github.com/raterudder/gridbalancer/pkg/types"
	"github.com/raterudder/gridbalancer/pkg/weather"
)

type balanceRequest struct {
	GridID string `json:"gridID"`
	City   string `json:"city"`
	// GridFrequencyHz and VoltagePU optionally report measured conditions
	// before the cycle runs.
	GridFrequencyHz *float64 `json:"gridFrequencyHz,omitempty"`
	VoltagePU       *float64 `json:"voltagePU,omitempty"`
}

// cycleError carries the HTTP status a failed cycle should be reported with.
type cycleError struct {
	msg  string
	code int
	err  error
}

func (e *cycleError) Error() string {
	return fmt.Sprintf("%s: %v", e.msg, e.err)
}

func (e *cycleError) Unwrap() error {
	return e.err
}

func decodeBalanceRequest(w http.ResponseWriter, r *http.Request) (balanceRequest, error) {
	var req balanceRequest
	// Limit body size to 1MB to prevent DoS
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		return req, err
	}
	return req, nil
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := decodeBalanceRequest(w, r)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode balance request", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	cycle, err := s.runCycle(ctx, req)
	if err != nil {
		s.writeCycleError(ctx, w, err)
		return
	}
	cycle.Balancing = cycle.Balancing.Rounded()
	writeJSON(w, cycle)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := decodeBalanceRequest(w, r)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode report request", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	cycle, err := s.runCycle(ctx, req)
	if err != nil {
		s.writeCycleError(ctx, w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	if err := report.Generate(w, cycle); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to write report", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) writeCycleError(ctx context.Context, w http.ResponseWriter, err error) {
	var cerr *cycleError
	if errors.As(err, &cerr) {
		if cerr.code >= http.StatusInternalServerError {
			log.Ctx(ctx).ErrorContext(ctx, "balancing cycle failed", slog.Any("error", err))
		} else {
			log.Ctx(ctx).WarnContext(ctx, "balancing cycle rejected", slog.Any("error", err))
		}
		writeJSONError(w, cerr.msg, cerr.code)
		return
	}
	log.Ctx(ctx).ErrorContext(ctx, "balancing cycle failed", slog.Any("error", err))
	writeJSONError(w, "balancing cycle failed", http.StatusInternalServerError)
}

// runCycle runs one weather -> demand -> balance pass for the requested grid
// and persists what it produced. Persistence failures are logged and
// reported through Cycle.Persisted rather than failing the cycle.
func (s *Server) runCycle(ctx context.Context, req balanceRequest) (types.Cycle, error) {
	gridID := req.GridID
	if gridID == "" {
		gridID = s.grids.DefaultID()
	}
	ctx = log.WithAttrs(ctx, slog.String("gridID", gridID))

	city, err := weather.SanitizeCity(req.City)
	if err != nil {
		return types.Cycle{}, &cycleError{msg: "invalid city", code: http.StatusBadRequest, err: err}
	}
	if req.GridFrequencyHz != nil {
		if err := grid.ValidateGridConditions(*req.GridFrequencyHz, 0); err != nil {
			return types.Cycle{}, &cycleError{msg: "invalid grid conditions", code: http.StatusBadRequest, err: err}
		}
	}
	if req.VoltagePU != nil {
		if err := grid.ValidateGridConditions(0, *req.VoltagePU); err != nil {
			return types.Cycle{}, &cycleError{msg: "invalid grid conditions", code: http.StatusBadRequest, err: err}
		}
	}

	obs, potential, err := s.weather.Observe(ctx, city)
	if err != nil {
		return types.Cycle{}, &cycleError{msg: "failed to observe weather", code: http.StatusBadGateway, err: err}
	}
	prediction := s.demand.PredictCurrent(ctx)

	o, err := s.grids.Grid(gridID)
	if err != nil {
		return types.Cycle{}, &cycleError{msg: "failed to get grid", code: http.StatusInternalServerError, err: err}
	}
	gen := o.RenewableGeneration(potential)

	// conditions only change once every input of the cycle is in hand and are
	// rolled back if balancing rejects the cycle
	prev := o.State()
	if req.GridFrequencyHz != nil || req.VoltagePU != nil {
		freq, volt := prev.GridFrequencyHz, prev.VoltagePU
		if req.GridFrequencyHz != nil {
			freq = *req.GridFrequencyHz
		}
		if req.VoltagePU != nil {
			volt = *req.VoltagePU
		}
		if err := o.SetGridConditions(freq, volt); err != nil {
			return types.Cycle{}, &cycleError{msg: "invalid grid conditions", code: http.StatusBadRequest, err: err}
		}
	}

	result, err := o.BalanceGrid(ctx, prediction.PredictedDemandMW, gen)
	if err != nil {
		if rerr := o.SetGridConditions(prev.GridFrequencyHz, prev.VoltagePU); rerr != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to restore grid conditions", slog.Any("error", rerr))
		}
		if errors.Is(err, grid.ErrInvalidInput) {
			return types.Cycle{}, &cycleError{msg: "invalid balancing input", code: http.StatusBadRequest, err: err}
		}
		return types.Cycle{}, &cycleError{msg: "failed to balance grid", code: http.StatusInternalServerError, err: err}
	}
	metrics.Observe(result)

	cycle := types.Cycle{
		GridID:    gridID,
		City:      obs.City,
		Weather:   obs,
		Potential: potential,
		Demand:    prediction,
		Renewable: gen,
		Balancing: result,
		Persisted: s.persistCycle(ctx, gridID, obs, potential, prediction, result),
	}
	return cycle, nil
}

func (s *Server) persistCycle(ctx context.Context, gridID string, obs types.WeatherObservation, potential types.RenewablePotential, prediction types.DemandPrediction, result types.BalancingResult) bool {
	persisted := true
	if err := s.storage.InsertWeatherObservation(ctx, gridID, types.WeatherRecord{Observation: obs, Potential: potential}); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to store weather observation", slog.Any("error", err))
		persisted = false
	}
	if err := s.storage.InsertDemandPrediction(ctx, gridID, prediction); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to store demand prediction", slog.Any("error", err))
		persisted = false
	}
	if err := s.storage.InsertBalancingResult(ctx, result); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to store balancing result", slog.Any("error", err))
		persisted = false
	}
	if !persisted {
		metrics.PersistFailed(gridID)
	}
	return persisted
}
