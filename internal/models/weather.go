package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// WeatherLog is one stored weather observation. Optional readings are pointers so
// that an absent value round-trips as JSON null instead of zero.
type WeatherLog struct {
	ID                       string    `json:"id" db:"id"`
	Source                   string    `json:"source" db:"source"`
	City                     string    `json:"city" db:"city"`
	Latitude                 float64   `json:"latitude" db:"latitude"`
	Longitude                float64   `json:"longitude" db:"longitude"`
	Timestamp                time.Time `json:"timestamp" db:"timestamp"`
	TemperatureC             *float64  `json:"temperature_c" db:"temperature_c"`
	Humidity                 *float64  `json:"humidity" db:"humidity"`
	WindSpeedMS              *float64  `json:"wind_speed_m_s" db:"wind_speed_m_s"`
	WeatherCode              *int      `json:"weather_code" db:"weather_code"`
	PrecipitationProbability *float64  `json:"precipitation_probability" db:"precipitation_probability"`
	WeatherDescription       *string   `json:"weather_description" db:"weather_description"`
}

// timestampLayouts are tried in order for string timestamps. Layouts without a
// zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// UnmarshalJSON decodes an observation the way loosely typed producers send it:
// numeric fields may be numbers or numeric strings, and the timestamp may be
// RFC 3339, zone-less ISO 8601 or epoch milliseconds. Empty strings decode as
// absent. Anything else that does not convert is an error.
func (l *WeatherLog) UnmarshalJSON(data []byte) error {
	type plain WeatherLog
	var raw struct {
		plain
		Latitude                 json.RawMessage `json:"latitude"`
		Longitude                json.RawMessage `json:"longitude"`
		Timestamp                json.RawMessage `json:"timestamp"`
		TemperatureC             json.RawMessage `json:"temperature_c"`
		Humidity                 json.RawMessage `json:"humidity"`
		WindSpeedMS              json.RawMessage `json:"wind_speed_m_s"`
		WeatherCode              json.RawMessage `json:"weather_code"`
		PrecipitationProbability json.RawMessage `json:"precipitation_probability"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := WeatherLog(raw.plain)
	var err error
	if out.Latitude, err = looseCoordinate("latitude", raw.Latitude); err != nil {
		return err
	}
	if out.Longitude, err = looseCoordinate("longitude", raw.Longitude); err != nil {
		return err
	}
	if out.Timestamp, err = looseTime(raw.Timestamp); err != nil {
		return err
	}
	if out.TemperatureC, err = looseFloat("temperature_c", raw.TemperatureC); err != nil {
		return err
	}
	if out.Humidity, err = looseFloat("humidity", raw.Humidity); err != nil {
		return err
	}
	if out.WindSpeedMS, err = looseFloat("wind_speed_m_s", raw.WindSpeedMS); err != nil {
		return err
	}
	if out.WeatherCode, err = looseInt("weather_code", raw.WeatherCode); err != nil {
		return err
	}
	if out.PrecipitationProbability, err = looseFloat("precipitation_probability", raw.PrecipitationProbability); err != nil {
		return err
	}
	*l = out
	return nil
}

func isNull(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	return len(v) == 0 || bytes.Equal(v, []byte("null"))
}

func looseFloat(field string, raw json.RawMessage) (*float64, error) {
	if isNull(raw) {
		return nil, nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		return &v, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%s: expected a number, got %s", field, raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%s: %q is not a number", field, s)
	}
	return &v, nil
}

func looseInt(field string, raw json.RawMessage) (*int, error) {
	f, err := looseFloat(field, raw)
	if err != nil || f == nil {
		return nil, err
	}
	if *f != math.Trunc(*f) {
		return nil, fmt.Errorf("%s: %v is not an integer", field, *f)
	}
	n := int(*f)
	return &n, nil
}

func looseCoordinate(field string, raw json.RawMessage) (float64, error) {
	f, err := looseFloat(field, raw)
	if err != nil || f == nil {
		return 0, err
	}
	return *f, nil
}

func looseTime(raw json.RawMessage) (time.Time, error) {
	if isNull(raw) {
		return time.Time{}, nil
	}
	var ms float64
	if err := json.Unmarshal(raw, &ms); err == nil {
		return time.UnixMilli(int64(ms)).UTC(), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, fmt.Errorf("timestamp: expected a date string or epoch milliseconds, got %s", raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(n).UTC(), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp: %q is not a recognised date", s)
}

// Float returns a pointer to v. Handy for building logs in code and tests.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}

// String returns a pointer to v.
func String(v string) *string {
	return &v
}
