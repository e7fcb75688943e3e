package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// hourlyFields are the hourly series requested alongside current conditions.
const hourlyFields = "relativehumidity_2m,precipitation_probability,wind_speed_10m,temperature_2m,weathercode"

// Reading is the subset of an Open-Meteo forecast used to build an observation.
// Fields the upstream omits stay nil.
type Reading struct {
	TemperatureC             *float64
	WindSpeedMS              *float64
	WeatherCode              *int
	Humidity                 *float64
	PrecipitationProbability *float64
}

// OpenMeteoClient fetches current conditions from the Open-Meteo forecast API.
type OpenMeteoClient struct {
	baseURL string
	http    *httpGetter
}

// NewOpenMeteoClient creates a client for baseURL (e.g. https://api.open-meteo.com/v1/forecast).
func NewOpenMeteoClient(baseURL string, opts Options) (*OpenMeteoClient, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid open-meteo url: %w", err)
	}
	return &OpenMeteoClient{baseURL: baseURL, http: newHTTPGetter("openmeteo", opts)}, nil
}

// Current returns the current reading at the coordinates. Humidity and rain
// probability come from the first hourly slot.
func (c *OpenMeteoClient) Current(ctx context.Context, latitude, longitude float64) (Reading, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(longitude, 'f', -1, 64))
	q.Set("current_weather", "true")
	q.Set("hourly", hourlyFields)
	q.Set("timezone", "UTC")

	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}
	body, err := c.http.get(ctx, c.baseURL+sep+q.Encode())
	if err != nil {
		return Reading{}, err
	}
	return parseReading(body)
}

func parseReading(body []byte) (Reading, error) {
	if !gjson.ValidBytes(body) {
		return Reading{}, fmt.Errorf("%w: invalid json", errMalformed)
	}
	doc := gjson.ParseBytes(body)
	return Reading{
		TemperatureC:             floatAt(doc, "current_weather.temperature"),
		WindSpeedMS:              floatAt(doc, "current_weather.windspeed"),
		WeatherCode:              intAt(doc, "current_weather.weathercode"),
		Humidity:                 floatAt(doc, "hourly.relativehumidity_2m.0"),
		PrecipitationProbability: floatAt(doc, "hourly.precipitation_probability.0"),
	}, nil
}

func floatAt(doc gjson.Result, path string) *float64 {
	r := doc.Get(path)
	if r.Type != gjson.Number {
		return nil
	}
	v := r.Float()
	return &v
}

func intAt(doc gjson.Result, path string) *int {
	r := doc.Get(path)
	if r.Type != gjson.Number {
		return nil
	}
	v := int(r.Int())
	return &v
}

// DescribeWeatherCode returns a short English label for a WMO weather code.
func DescribeWeatherCode(code int) string {
	switch {
	case code == 0:
		return "Clear sky"
	case code == 1:
		return "Mainly clear"
	case code == 2:
		return "Partly cloudy"
	case code == 3:
		return "Overcast"
	case code == 45 || code == 48:
		return "Fog"
	case code >= 51 && code <= 57:
		return "Drizzle"
	case (code >= 61 && code <= 67) || (code >= 80 && code <= 82):
		return "Rain"
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return "Snow"
	case code >= 95:
		return "Thunderstorm"
	default:
		return "Unknown"
	}
}
