package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/gridbalancer/pkg/types"
	"gorm.io/gorm"
)

// SQLiteProvider implements the Database interface on a local sqlite file
// using gorm. Balancing results are stored one column per field.
type SQLiteProvider struct {
	db   *gorm.DB
	path string
}

// configuredSQLite sets up the sqlite provider.
// It registers flags for configuration.
func configuredSQLite() *SQLiteProvider {
	path := lflag.String("sqlite-path", "gridbalancer.db", "path of the sqlite database file")

	s := &SQLiteProvider{}

	lflag.Do(func() {
		s.path = *path
	})

	return s
}

// NewSQLite opens (and migrates) the sqlite database at path.
func NewSQLite(ctx context.Context, path string) (*SQLiteProvider, error) {
	s := &SQLiteProvider{path: path}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks if the provider is properly configured.
func (s *SQLiteProvider) Validate() error {
	if s.path == "" {
		return fmt.Errorf("sqlite-path is required")
	}
	return nil
}

// Init opens the database and migrates the schema.
func (s *SQLiteProvider) Init(ctx context.Context) error {
	db, err := gorm.Open(sqlite.Open(s.path), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	err = db.WithContext(ctx).AutoMigrate(&storedBalancingResult{}, &storedWeatherObservation{}, &storedDemandPrediction{})
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	s.db = db
	return nil
}

// Close closes the underlying connection pool.
func (s *SQLiteProvider) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// storedBalancingResult is the flat row layout of a types.BalancingResult.
type storedBalancingResult struct {
	ID        string    `gorm:"primaryKey"`
	GridID    string    `gorm:"index:idx_balancing_grid_time,priority:1;not null"`
	Timestamp time.Time `gorm:"index:idx_balancing_grid_time,priority:2;not null"`

	DemandMW              float64
	SolarGenerationMW     float64
	WindGenerationMW      float64
	RenewableGenerationMW float64
	TotalGenerationMW     float64
	SupplyDemandRatio     float64

	RenewableUsedMW      float64
	StorageDischargedMW  float64
	ConventionalUsedMW   float64
	StorageChargedMW     float64
	CurtailedRenewableMW float64
	UnservedMW           float64

	GridBalance            string
	Stability              string
	RenewablePercentage    float64
	StorageLevelMWh        float64 `gorm:"column:storage_level_mwh"`
	StorageSOCPercent      float64 `gorm:"column:storage_soc_percent"`
	CarbonIntensityGCO2KWh float64 `gorm:"column:carbon_intensity_gco2_kwh"`
	Efficiency             float64
	StabilityIndex         float64
	// JSON encoded []string
	Recommendations string
}

func (storedBalancingResult) TableName() string {
	return "balancing_results"
}

func newStoredBalancingResult(r types.BalancingResult) (storedBalancingResult, error) {
	recs, err := json.Marshal(r.Recommendations)
	if err != nil {
		return storedBalancingResult{}, fmt.Errorf("failed to marshal recommendations: %w", err)
	}
	id := r.ID
	if id == "" {
		id = uuid.NewString()
	}
	return storedBalancingResult{
		ID:                     id,
		GridID:                 r.GridID,
		Timestamp:              r.Timestamp.UTC(),
		DemandMW:               r.DemandMW,
		SolarGenerationMW:      r.SolarGenerationMW,
		WindGenerationMW:       r.WindGenerationMW,
		RenewableGenerationMW:  r.RenewableGenerationMW,
		TotalGenerationMW:      r.TotalGenerationMW,
		SupplyDemandRatio:      r.SupplyDemandRatio,
		RenewableUsedMW:        r.EnergyMix.RenewableUsedMW,
		StorageDischargedMW:    r.EnergyMix.StorageDischargedMW,
		ConventionalUsedMW:     r.EnergyMix.ConventionalUsedMW,
		StorageChargedMW:       r.EnergyMix.StorageChargedMW,
		CurtailedRenewableMW:   r.EnergyMix.CurtailedRenewableMW,
		UnservedMW:             r.EnergyMix.UnservedMW,
		GridBalance:            string(r.GridBalance),
		Stability:              string(r.Stability),
		RenewablePercentage:    r.RenewablePercentage,
		StorageLevelMWh:        r.StorageLevelMWh,
		StorageSOCPercent:      r.StorageSOCPercent,
		CarbonIntensityGCO2KWh: r.CarbonIntensityGCO2KWh,
		Efficiency:             r.Efficiency,
		StabilityIndex:         r.StabilityIndex,
		Recommendations:        string(recs),
	}, nil
}

func (s storedBalancingResult) toBalancingResult() (types.BalancingResult, error) {
	var recs []string
	if s.Recommendations != "" {
		if err := json.Unmarshal([]byte(s.Recommendations), &recs); err != nil {
			return types.BalancingResult{}, fmt.Errorf("failed to unmarshal recommendations (id=%s): %w", s.ID, err)
		}
	}
	return types.BalancingResult{
		ID:                    s.ID,
		GridID:                s.GridID,
		Timestamp:             s.Timestamp.UTC(),
		DemandMW:              s.DemandMW,
		SolarGenerationMW:     s.SolarGenerationMW,
		WindGenerationMW:      s.WindGenerationMW,
		RenewableGenerationMW: s.RenewableGenerationMW,
		TotalGenerationMW:     s.TotalGenerationMW,
		SupplyDemandRatio:     s.SupplyDemandRatio,
		EnergyMix: types.EnergyMix{
			RenewableUsedMW:      s.RenewableUsedMW,
			StorageDischargedMW:  s.StorageDischargedMW,
			ConventionalUsedMW:   s.ConventionalUsedMW,
			StorageChargedMW:     s.StorageChargedMW,
			CurtailedRenewableMW: s.CurtailedRenewableMW,
			UnservedMW:           s.UnservedMW,
		},
		GridBalance:            types.GridBalance(s.GridBalance),
		Stability:              types.Stability(s.Stability),
		RenewablePercentage:    s.RenewablePercentage,
		StorageLevelMWh:        s.StorageLevelMWh,
		StorageSOCPercent:      s.StorageSOCPercent,
		CarbonIntensityGCO2KWh: s.CarbonIntensityGCO2KWh,
		Efficiency:             s.Efficiency,
		StabilityIndex:         s.StabilityIndex,
		Recommendations:        recs,
	}, nil
}

// storedWeatherObservation keeps the record as JSON next to the columns used
// for lookups.
type storedWeatherObservation struct {
	ID        string    `gorm:"primaryKey"`
	GridID    string    `gorm:"index:idx_weather_grid_time,priority:1;not null"`
	Timestamp time.Time `gorm:"index:idx_weather_grid_time,priority:2;not null"`
	City      string
	JSON      string
}

func (storedWeatherObservation) TableName() string {
	return "weather_observations"
}

type storedDemandPrediction struct {
	ID                string    `gorm:"primaryKey"`
	GridID            string    `gorm:"index:idx_demand_grid_time,priority:1;not null"`
	Timestamp         time.Time `gorm:"index:idx_demand_grid_time,priority:2;not null"`
	PredictedDemandMW float64
	JSON              string
}

func (storedDemandPrediction) TableName() string {
	return "demand_predictions"
}

// InsertBalancingResult stores a result, generating an ID if it has none.
func (s *SQLiteProvider) InsertBalancingResult(ctx context.Context, result types.BalancingResult) error {
	if result.GridID == "" {
		return fmt.Errorf("gridID cannot be empty")
	}
	row, err := newStoredBalancingResult(result)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert balancing result: %w", err)
	}
	return nil
}

// GetBalancingHistory retrieves results with timestamps in [start, end),
// oldest first.
func (s *SQLiteProvider) GetBalancingHistory(ctx context.Context, gridID string, start, end time.Time) ([]types.BalancingResult, error) {
	var rows []storedBalancingResult
	err := s.db.WithContext(ctx).
		Where("grid_id = ? AND timestamp >= ? AND timestamp < ?", gridID, start.UTC(), end.UTC()).
		Order("timestamp asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query balancing history: %w", err)
	}
	results := make([]types.BalancingResult, 0, len(rows))
	for _, row := range rows {
		r, err := row.toBalancingResult()
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

// GetLatestBalancingResult retrieves the most recent result for the grid.
func (s *SQLiteProvider) GetLatestBalancingResult(ctx context.Context, gridID string) (types.BalancingResult, error) {
	var row storedBalancingResult
	err := s.db.WithContext(ctx).
		Where("grid_id = ?", gridID).
		Order("timestamp desc").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.BalancingResult{}, ErrNotFound
	}
	if err != nil {
		return types.BalancingResult{}, fmt.Errorf("failed to get latest balancing result: %w", err)
	}
	return row.toBalancingResult()
}

// InsertWeatherObservation stores an observation and its potentials.
func (s *SQLiteProvider) InsertWeatherObservation(ctx context.Context, gridID string, record types.WeatherRecord) error {
	if gridID == "" {
		return fmt.Errorf("gridID cannot be empty")
	}
	jsonBytes, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal weather record: %w", err)
	}
	row := storedWeatherObservation{
		ID:        uuid.NewString(),
		GridID:    gridID,
		Timestamp: record.Observation.Timestamp.UTC(),
		City:      record.Observation.City,
		JSON:      string(jsonBytes),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert weather observation: %w", err)
	}
	return nil
}

// GetWeatherHistory retrieves observations with timestamps in [start, end),
// oldest first.
func (s *SQLiteProvider) GetWeatherHistory(ctx context.Context, gridID string, start, end time.Time) ([]types.WeatherRecord, error) {
	var rows []storedWeatherObservation
	err := s.db.WithContext(ctx).
		Where("grid_id = ? AND timestamp >= ? AND timestamp < ?", gridID, start.UTC(), end.UTC()).
		Order("timestamp asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query weather history: %w", err)
	}
	records := make([]types.WeatherRecord, 0, len(rows))
	for _, row := range rows {
		var r types.WeatherRecord
		if err := json.Unmarshal([]byte(row.JSON), &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal weather record (id=%s): %w", row.ID, err)
		}
		records = append(records, r)
	}
	return records, nil
}

// InsertDemandPrediction stores a demand prediction.
func (s *SQLiteProvider) InsertDemandPrediction(ctx context.Context, gridID string, prediction types.DemandPrediction) error {
	if gridID == "" {
		return fmt.Errorf("gridID cannot be empty")
	}
	jsonBytes, err := json.Marshal(prediction)
	if err != nil {
		return fmt.Errorf("failed to marshal demand prediction: %w", err)
	}
	row := storedDemandPrediction{
		ID:                uuid.NewString(),
		GridID:            gridID,
		Timestamp:         prediction.Timestamp.UTC(),
		PredictedDemandMW: prediction.PredictedDemandMW,
		JSON:              string(jsonBytes),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert demand prediction: %w", err)
	}
	return nil
}

// GetDemandHistory retrieves predictions with timestamps in [start, end),
// oldest first.
func (s *SQLiteProvider) GetDemandHistory(ctx context.Context, gridID string, start, end time.Time) ([]types.DemandPrediction, error) {
	var rows []storedDemandPrediction
	err := s.db.WithContext(ctx).
		Where("grid_id = ? AND timestamp >= ? AND timestamp < ?", gridID, start.UTC(), end.UTC()).
		Order("timestamp asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query demand history: %w", err)
	}
	predictions := make([]types.DemandPrediction, 0, len(rows))
	for _, row := range rows {
		var p types.DemandPrediction
		if err := json.Unmarshal([]byte(row.JSON), &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal demand prediction (id=%s): %w", row.ID, err)
		}
		predictions = append(predictions, p)
	}
	return predictions, nil
}
