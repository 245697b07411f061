package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/gridbalancer/pkg/log"
	"github.com/raterudder/gridbalancer/pkg/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	balancingCollection = "balancing_history"
	weatherCollection   = "weather_history"
	demandCollection    = "demand_history"
)

// FirestoreProvider implements the Database interface using Google Cloud
// Firestore. Every grid gets its own set of collections under grids/{gridID}.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// empty project ID is allowed since it can be detected
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) getCollection(gridID, name string) (*firestore.CollectionRef, error) {
	if gridID == "" {
		return nil, fmt.Errorf("gridID cannot be empty")
	}
	return f.client.Collection("grids").Doc(gridID).Collection(name), nil
}

// setJSONDoc stores v as a JSON string keyed by its timestamp.
func (f *FirestoreProvider) setJSONDoc(ctx context.Context, gridID, collection string, ts time.Time, v any) error {
	if ts.IsZero() {
		return fmt.Errorf("%s record missing timestamp", collection)
	}
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", collection, err)
	}
	coll, err := f.getCollection(gridID, collection)
	if err != nil {
		return err
	}
	_, err = coll.Doc(formatDocTime(ts)).Set(ctx, map[string]interface{}{
		"json":      string(jsonBytes),
		"timestamp": ts,
	})
	if err != nil {
		return fmt.Errorf("failed to insert %s record: %w", collection, err)
	}
	return nil
}

// decodeJSONDoc unmarshals the "json" field of doc into v.
func decodeJSONDoc(ctx context.Context, gridID string, doc *firestore.DocumentSnapshot, v any) error {
	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "doc missing json", slog.String("docID", doc.Ref.ID), slog.String("gridID", gridID), slog.Any("err", err))
		return fmt.Errorf("document %s missing 'json' field: %w", doc.Ref.ID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "doc json not string", slog.String("docID", doc.Ref.ID), slog.String("gridID", gridID))
		return fmt.Errorf("document %s 'json' field is not string", doc.Ref.ID)
	}
	if err := json.Unmarshal([]byte(jsonStr), v); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal doc", slog.String("docID", doc.Ref.ID), slog.String("gridID", gridID), slog.Any("err", err))
		return fmt.Errorf("failed to unmarshal document (id=%s): %w", doc.Ref.ID, err)
	}
	return nil
}

// rangeDocs iterates over documents whose IDs fall in [start, end) and calls
// fn with each one in ascending order.
func (f *FirestoreProvider) rangeDocs(ctx context.Context, gridID, collection string, start, end time.Time, fn func(*firestore.DocumentSnapshot) error) error {
	coll, err := f.getCollection(gridID, collection)
	if err != nil {
		return err
	}
	iter := coll.
		Where(firestore.DocumentID, ">=", coll.Doc(formatDocTime(start))).
		Where(firestore.DocumentID, "<", coll.Doc(formatDocTime(end))).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error iterating %s: %w", collection, err)
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
}

// InsertBalancingResult adds a result to the "balancing_history" collection.
func (f *FirestoreProvider) InsertBalancingResult(ctx context.Context, result types.BalancingResult) error {
	return f.setJSONDoc(ctx, result.GridID, balancingCollection, result.Timestamp, result)
}

// GetBalancingHistory retrieves results with timestamps in [start, end).
func (f *FirestoreProvider) GetBalancingHistory(ctx context.Context, gridID string, start, end time.Time) ([]types.BalancingResult, error) {
	var results []types.BalancingResult
	err := f.rangeDocs(ctx, gridID, balancingCollection, start, end, func(doc *firestore.DocumentSnapshot) error {
		var r types.BalancingResult
		if err := decodeJSONDoc(ctx, gridID, doc, &r); err != nil {
			return err
		}
		results = append(results, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetLatestBalancingResult retrieves the most recent result for the grid.
func (f *FirestoreProvider) GetLatestBalancingResult(ctx context.Context, gridID string) (types.BalancingResult, error) {
	coll, err := f.getCollection(gridID, balancingCollection)
	if err != nil {
		return types.BalancingResult{}, err
	}
	iter := coll.
		OrderBy(firestore.DocumentID, firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return types.BalancingResult{}, ErrNotFound
	}
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.BalancingResult{}, ErrNotFound
		}
		return types.BalancingResult{}, fmt.Errorf("failed to get latest balancing doc: %w", err)
	}

	var r types.BalancingResult
	if err := decodeJSONDoc(ctx, gridID, doc, &r); err != nil {
		return types.BalancingResult{}, err
	}
	return r, nil
}

// InsertWeatherObservation adds an observation to the "weather_history"
// collection.
func (f *FirestoreProvider) InsertWeatherObservation(ctx context.Context, gridID string, record types.WeatherRecord) error {
	return f.setJSONDoc(ctx, gridID, weatherCollection, record.Observation.Timestamp, record)
}

// GetWeatherHistory retrieves observations with timestamps in [start, end).
func (f *FirestoreProvider) GetWeatherHistory(ctx context.Context, gridID string, start, end time.Time) ([]types.WeatherRecord, error) {
	var records []types.WeatherRecord
	err := f.rangeDocs(ctx, gridID, weatherCollection, start, end, func(doc *firestore.DocumentSnapshot) error {
		var r types.WeatherRecord
		if err := decodeJSONDoc(ctx, gridID, doc, &r); err != nil {
			return err
		}
		records = append(records, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// InsertDemandPrediction adds a prediction to the "demand_history" collection.
func (f *FirestoreProvider) InsertDemandPrediction(ctx context.Context, gridID string, prediction types.DemandPrediction) error {
	return f.setJSONDoc(ctx, gridID, demandCollection, prediction.Timestamp, prediction)
}

// GetDemandHistory retrieves predictions with timestamps in [start, end).
func (f *FirestoreProvider) GetDemandHistory(ctx context.Context, gridID string, start, end time.Time) ([]types.DemandPrediction, error) {
	var predictions []types.DemandPrediction
	err := f.rangeDocs(ctx, gridID, demandCollection, start, end, func(doc *firestore.DocumentSnapshot) error {
		var p types.DemandPrediction
		if err := decodeJSONDoc(ctx, gridID, doc, &p); err != nil {
			return err
		}
		predictions = append(predictions, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return predictions, nil
}
