// Package search implements keyword search over the persisted weather,
// demand and balancing history of a grid.
package search

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/raterudder/gridbalancer/pkg/log"
	"github.com/raterudder/gridbalancer/pkg/types"
)

const (
	DefaultDays  = 7
	MaxDays      = 30
	DefaultLimit = 50
	MaxLimit     = 200
)

// ErrInvalidQuery is returned for unknown types or out of range filters.
var ErrInvalidQuery = errors.New("invalid search query")

// Type selects which records a search covers.
type Type string

const (
	TypeAll     Type = "all"
	TypeWeather Type = "weather"
	TypeDemand  Type = "demand"
	TypeGrid    Type = "grid"
)

// ParseType parses a type filter. An empty string means TypeAll.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(s)); t {
	case "":
		return TypeAll, nil
	case TypeAll, TypeWeather, TypeDemand, TypeGrid:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown type %q", ErrInvalidQuery, s)
	}
}

func (t Type) includes(other Type) bool {
	return t == TypeAll || t == other
}

// Store is the part of storage.Database that search reads from.
type Store interface {
	GetWeatherHistory(ctx context.Context, gridID string, start, end time.Time) ([]types.WeatherRecord, error)
	GetDemandHistory(ctx context.Context, gridID string, start, end time.Time) ([]types.DemandPrediction, error)
	GetBalancingHistory(ctx context.Context, gridID string, start, end time.Time) ([]types.BalancingResult, error)
}

// Filters narrows a search.
type Filters struct {
	Type   Type   `json:"type"`
	GridID string `json:"grid_id"`
	// City only applies to weather records.
	City string `json:"city,omitempty"`
	Days int    `json:"days"`
}

// Result is a single ranked record.
type Result struct {
	Type      Type      `json:"type"`
	Score     int       `json:"score"`
	Timestamp time.Time `json:"timestamp"`
	Summary   string    `json:"summary"`
	Data      any       `json:"data"`
}

// Response is the outcome of a search, best match first.
type Response struct {
	Query        string   `json:"query"`
	Keywords     []string `json:"keywords"`
	TotalResults int      `json:"total_results"`
	Results      []Result `json:"results"`
	Filters      Filters  `json:"filters_applied"`
}

// Engine searches the history of a Store.
type Engine struct {
	store Store
	now   func() time.Time
}

// New returns an Engine reading from store.
func New(store Store) *Engine {
	return &Engine{
		store: store,
		now:   time.Now,
	}
}

var stopWords = map[string]struct{}{
	"the": {}, "is": {}, "at": {}, "which": {}, "on": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "with": {}, "to": {}, "for": {}, "of": {}, "as": {}, "by": {}, "from": {}, "what": {}, "when": {},
	"where": {}, "how": {}, "why": {}, "this": {}, "that": {}, "these": {}, "those": {},
}

// NormalizeQuery lowercases q, turns punctuation into spaces and collapses
// whitespace.
func NormalizeQuery(q string) string {
	q = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			return unicode.ToLower(r)
		default:
			return ' '
		}
	}, q)
	return strings.Join(strings.Fields(q), " ")
}

// Keywords returns the words of q that are longer than two characters and
// are not stop words.
func Keywords(q string) []string {
	keywords := []string{}
	for _, w := range strings.Fields(NormalizeQuery(q)) {
		if _, ok := stopWords[w]; ok {
			continue
		}
		if utf8.RuneCountInString(w) <= 2 {
			continue
		}
		keywords = append(keywords, w)
	}
	return keywords
}

// RelevanceScore scores the lowercased text of a record. Each keyword found
// adds one, finding all of them adds the number of keywords again, and
// records younger than a day or a week add two or one.
func RelevanceScore(text string, keywords []string, ts, now time.Time) int {
	var score int
	all := true
	for _, k := range keywords {
		if strings.Contains(text, k) {
			score++
		} else {
			all = false
		}
	}
	if all {
		score += len(keywords)
	}
	if !ts.IsZero() {
		switch age := now.Sub(ts); {
		case age < 24*time.Hour:
			score += 2
		case age < 7*24*time.Hour:
			score++
		}
	}
	return score
}

func recordText(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return strings.ToLower(string(b)), nil
}

// Search ranks the grid's records from the last f.Days days against query and
// returns at most limit of them. Records scoring zero are dropped.
func (e *Engine) Search(ctx context.Context, query string, f Filters, limit int) (Response, error) {
	if f.GridID == "" {
		return Response{}, fmt.Errorf("%w: gridID cannot be empty", ErrInvalidQuery)
	}
	if f.Type == "" {
		f.Type = TypeAll
	}
	if f.Days == 0 {
		f.Days = DefaultDays
	}
	if f.Days < 0 || f.Days > MaxDays {
		return Response{}, fmt.Errorf("%w: days must be between 1 and %d", ErrInvalidQuery, MaxDays)
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 0 || limit > MaxLimit {
		return Response{}, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidQuery, MaxLimit)
	}

	keywords := Keywords(query)
	now := e.now()
	start := now.Add(-time.Duration(f.Days) * 24 * time.Hour)

	var results []Result
	add := func(t Type, ts time.Time, summary string, data any) error {
		text, err := recordText(data)
		if err != nil {
			return fmt.Errorf("failed to marshal %s record: %w", t, err)
		}
		if score := RelevanceScore(text, keywords, ts, now); score > 0 {
			results = append(results, Result{Type: t, Score: score, Timestamp: ts, Summary: summary, Data: data})
		}
		return nil
	}

	if f.Type.includes(TypeWeather) {
		records, err := e.store.GetWeatherHistory(ctx, f.GridID, start, now)
		if err != nil {
			return Response{}, fmt.Errorf("failed to search weather history: %w", err)
		}
		for _, r := range slices.Backward(records) {
			if f.City != "" && !strings.EqualFold(r.Observation.City, f.City) {
				continue
			}
			summary := fmt.Sprintf("Weather in %s: %.1f°C, Renewable Score: %.1f%%", r.Observation.City, r.Observation.TemperatureC, r.Potential.RenewableScore)
			if err := add(TypeWeather, r.Observation.Timestamp, summary, r); err != nil {
				return Response{}, err
			}
		}
	}
	if f.Type.includes(TypeDemand) {
		predictions, err := e.store.GetDemandHistory(ctx, f.GridID, start, now)
		if err != nil {
			return Response{}, fmt.Errorf("failed to search demand history: %w", err)
		}
		for _, p := range slices.Backward(predictions) {
			summary := fmt.Sprintf("Demand: %.2f MW (Confidence: %.0f%%)", p.PredictedDemandMW, p.Confidence*100)
			if err := add(TypeDemand, p.Timestamp, summary, p); err != nil {
				return Response{}, err
			}
		}
	}
	if f.Type.includes(TypeGrid) {
		history, err := e.store.GetBalancingHistory(ctx, f.GridID, start, now)
		if err != nil {
			return Response{}, fmt.Errorf("failed to search balancing history: %w", err)
		}
		for _, r := range slices.Backward(history) {
			r = r.Rounded()
			summary := fmt.Sprintf("Grid: %s, Renewable: %.1f%%, Efficiency: %.1f%%", r.GridBalance, r.RenewablePercentage, r.Efficiency)
			if err := add(TypeGrid, r.Timestamp, summary, r); err != nil {
				return Response{}, err
			}
		}
	}

	// stable so equal scores keep newest first within each type
	slices.SortStableFunc(results, func(a, b Result) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []Result{}
	}

	log.Ctx(ctx).DebugContext(
		ctx,
		"search completed",
		slog.String("query", query),
		slog.Any("keywords", keywords),
		slog.Int("results", len(results)),
	)
	return Response{
		Query:        query,
		Keywords:     keywords,
		TotalResults: len(results),
		Results:      results,
		Filters:      f,
	}, nil
}

var commonTerms = []string{
	"weather forecast",
	"renewable energy",
	"grid balance",
	"demand prediction",
	"solar potential",
	"wind generation",
	"carbon intensity",
	"energy efficiency",
	"peak demand",
	"surplus energy",
}

// Suggestions returns up to limit common search terms containing partial.
func Suggestions(partial string, limit int) []string {
	partial = strings.ToLower(strings.TrimSpace(partial))
	out := []string{}
	for _, term := range commonTerms {
		if len(out) >= limit {
			break
		}
		if strings.Contains(term, partial) {
			out = append(out, term)
		}
	}
	return out
}
