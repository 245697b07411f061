package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/raterudder/gridbalancer/pkg/grid"
	"github.com/raterudder/gridbalancer/pkg/log"
	"github.com/raterudder/gridbalancer/pkg/types"
)

const maxHistoryRange = 7 * 24 * time.Hour

func (s *Server) handleHistoryBalancing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	gridID := s.gridID(r)
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSONError(w, "invalid time range: "+err.Error(), http.StatusBadRequest)
		return
	}

	results, err := s.storage.GetBalancingHistory(ctx, gridID, start, end)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get balancing history", slog.String("gridID", gridID), slog.Any("error", err))
		writeJSONError(w, "failed to get balancing history", http.StatusInternalServerError)
		return
	}
	for i := range results {
		results[i] = results[i].Rounded()
	}
	if results == nil {
		results = []types.BalancingResult{}
	}

	setHistoryCacheControl(w, end)
	writeJSON(w, results)
}

func (s *Server) handleHistoryWeather(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	gridID := s.gridID(r)
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSONError(w, "invalid time range: "+err.Error(), http.StatusBadRequest)
		return
	}

	records, err := s.storage.GetWeatherHistory(ctx, gridID, start, end)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get weather history", slog.String("gridID", gridID), slog.Any("error", err))
		writeJSONError(w, "failed to get weather history", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []types.WeatherRecord{}
	}

	setHistoryCacheControl(w, end)
	writeJSON(w, records)
}

func (s *Server) handleHistoryDemand(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	gridID := s.gridID(r)
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSONError(w, "invalid time range: "+err.Error(), http.StatusBadRequest)
		return
	}

	predictions, err := s.storage.GetDemandHistory(ctx, gridID, start, end)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get demand history", slog.String("gridID", gridID), slog.Any("error", err))
		writeJSONError(w, "failed to get demand history", http.StatusInternalServerError)
		return
	}
	if predictions == nil {
		predictions = []types.DemandPrediction{}
	}

	setHistoryCacheControl(w, end)
	writeJSON(w, predictions)
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	gridID := s.gridID(r)

	window := s.historyWindow
	if v := r.URL.Query().Get("window"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSONError(w, "window must be a positive integer", http.StatusBadRequest)
			return
		}
		window = n
	}

	switch source := r.URL.Query().Get("source"); source {
	case "", "memory":
		o, ok := s.grids.Lookup(gridID)
		if !ok {
			writeJSONError(w, "unknown grid", http.StatusNotFound)
			return
		}
		writeJSON(w, o.PerformanceMetrics(window))
	case "storage":
		end := time.Now()
		history, err := s.storage.GetBalancingHistory(ctx, gridID, end.Add(-maxHistoryRange), end)
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to get balancing history", slog.String("gridID", gridID), slog.Any("error", err))
			writeJSONError(w, "failed to get balancing history", http.StatusInternalServerError)
			return
		}
		var soc float64
		if len(history) > 0 {
			soc = history[len(history)-1].StorageSOCPercent
		}
		writeJSON(w, grid.SummarizeHistory(history, window, soc))
	default:
		writeJSONError(w, fmt.Sprintf("unknown source %q", source), http.StatusBadRequest)
	}
}

// setHistoryCacheControl caches ranges that ended before today for a day and
// everything else for a minute.
func setHistoryCacheControl(w http.ResponseWriter, end time.Time) {
	today := time.Now().Truncate(24 * time.Hour)
	if end.Before(today) {
		w.Header().Set("Cache-Control", "private, max-age=86400")
	} else {
		w.Header().Set("Cache-Control", "private, max-age=60")
	}
}

func parseTimeRange(r *http.Request) (time.Time, time.Time, error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" || endStr == "" {
		// Default to last 24 hours if not specified
		end := time.Now()
		start := end.Add(-24 * time.Hour)
		return start, end, nil
	}

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start time: %w", err)
	}

	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end time: %w", err)
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("start time must be before end time")
	}

	if end.Sub(start) > maxHistoryRange {
		return time.Time{}, time.Time{}, fmt.Errorf("time range cannot exceed 7 days")
	}

	return start, end, nil
}
