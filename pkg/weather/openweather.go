package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/raterudder/gridbalancer/pkg/log"
	"github.com/raterudder/gridbalancer/pkg/types"
)

const (
	openWeatherMapSource = "OpenWeatherMap"

	// used when the API omits the optional fields
	defaultPressureHPA = 1013
	defaultVisibilityM = 10000
)

// OpenWeatherMap implements Provider using the OpenWeatherMap current
// weather API.
type OpenWeatherMap struct {
	apiURL string
	apiKey string
	client *http.Client

	now func() time.Time
}

// NewOpenWeatherMap returns a provider that queries apiURL with apiKey.
func NewOpenWeatherMap(apiURL, apiKey string, client *http.Client) *OpenWeatherMap {
	return &OpenWeatherMap{
		apiURL: apiURL,
		apiKey: apiKey,
		client: client,
	}
}

type owmResponse struct {
	Main struct {
		Temp     float64  `json:"temp"`
		Humidity float64  `json:"humidity"`
		Pressure *float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Clouds struct {
		All float64 `json:"all"`
	} `json:"clouds"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Visibility *float64 `json:"visibility"`
}

// GetObservation implements Provider.
func (o *OpenWeatherMap) GetObservation(ctx context.Context, city string) (types.WeatherObservation, error) {
	u, err := url.Parse(strings.TrimSuffix(o.apiURL, "/") + "/weather")
	if err != nil {
		return types.WeatherObservation{}, fmt.Errorf("invalid weather api url: %w", err)
	}
	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", o.apiKey)
	params.Set("units", "metric")
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return types.WeatherObservation{}, fmt.Errorf("failed to create request: %w", err)
	}
	log.Ctx(ctx).DebugContext(ctx, "fetching weather from openweathermap", slog.String("city", city))

	resp, err := o.client.Do(req)
	if err != nil {
		return types.WeatherObservation{}, fmt.Errorf("failed to fetch weather: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.WeatherObservation{}, fmt.Errorf("openweathermap returned status: %d", resp.StatusCode)
	}

	var data owmResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return types.WeatherObservation{}, fmt.Errorf("failed to decode weather response: %w", err)
	}
	if len(data.Weather) == 0 {
		return types.WeatherObservation{}, fmt.Errorf("openweathermap response missing weather conditions")
	}

	now := time.Now
	if o.now != nil {
		now = o.now
	}
	obs := types.WeatherObservation{
		Timestamp:     now().UTC(),
		City:          city,
		TemperatureC:  data.Main.Temp,
		HumidityPct:   data.Main.Humidity,
		WindSpeedMS:   data.Wind.Speed,
		CloudCoverPct: data.Clouds.All,
		Condition:     data.Weather[0].Main,
		Description:   data.Weather[0].Description,
		PressureHPA:   defaultPressureHPA,
		VisibilityKM:  defaultVisibilityM / 1000,
		RealData:      true,
		Source:        openWeatherMapSource,
	}
	if data.Main.Pressure != nil {
		obs.PressureHPA = *data.Main.Pressure
	}
	if data.Visibility != nil {
		obs.VisibilityKM = *data.Visibility / 1000
	}

	log.Ctx(ctx).DebugContext(
		ctx,
		"fetched weather",
		slog.String("city", city),
		slog.String("description", obs.Description),
		slog.Float64("temperature", obs.TemperatureC),
	)
	return obs, nil
}
