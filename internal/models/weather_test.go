package models

import (
	"encoding/json"
	"testing"
	"time"
)

// TestWeatherLog_UnmarshalJSON_Coercion verifies numeric strings and the accepted
// timestamp forms decode into typed fields.
func TestWeatherLog_UnmarshalJSON_Coercion(t *testing.T) {
	want := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		body string
	}{
		{"rfc3339", `{"timestamp":"2025-05-01T10:00:00Z"}`},
		{"rfc3339 with offset", `{"timestamp":"2025-05-01T07:00:00-03:00"}`},
		{"zone-less minutes", `{"timestamp":"2025-05-01T10:00"}`},
		{"zone-less seconds", `{"timestamp":"2025-05-01T10:00:00"}`},
		{"zone-less millis", `{"timestamp":"2025-05-01T10:00:00.000"}`},
		{"space separated", `{"timestamp":"2025-05-01 10:00:00"}`},
		{"epoch millis", `{"timestamp":1746093600000}`},
		{"epoch millis string", `{"timestamp":"1746093600000"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l WeatherLog
			if err := json.Unmarshal([]byte(tt.body), &l); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if !l.Timestamp.Equal(want) {
				t.Errorf("Timestamp = %v, want %v", l.Timestamp, want)
			}
		})
	}
}

// TestWeatherLog_UnmarshalJSON_NumericStrings verifies every numeric field accepts
// string values and that empty strings and null stay absent.
func TestWeatherLog_UnmarshalJSON_NumericStrings(t *testing.T) {
	body := `{"id":"obs-1","city":"Alvorada","latitude":"-12.48","longitude":-49.12,
		"temperature_c":"21.5","humidity":" 70 ","wind_speed_m_s":"","weather_code":"3",
		"precipitation_probability":null,"weather_description":"overcast"}`
	var l WeatherLog
	if err := json.Unmarshal([]byte(body), &l); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if l.ID != "obs-1" || l.City != "Alvorada" {
		t.Errorf("ID/City = %q/%q, want obs-1/Alvorada", l.ID, l.City)
	}
	if l.Latitude != -12.48 || l.Longitude != -49.12 {
		t.Errorf("coordinates = %v,%v, want -12.48,-49.12", l.Latitude, l.Longitude)
	}
	if l.TemperatureC == nil || *l.TemperatureC != 21.5 {
		t.Errorf("TemperatureC = %v, want 21.5", l.TemperatureC)
	}
	if l.Humidity == nil || *l.Humidity != 70 {
		t.Errorf("Humidity = %v, want 70", l.Humidity)
	}
	if l.WindSpeedMS != nil {
		t.Errorf("WindSpeedMS = %v, want nil", *l.WindSpeedMS)
	}
	if l.WeatherCode == nil || *l.WeatherCode != 3 {
		t.Errorf("WeatherCode = %v, want 3", l.WeatherCode)
	}
	if l.PrecipitationProbability != nil {
		t.Errorf("PrecipitationProbability = %v, want nil", *l.PrecipitationProbability)
	}
	if l.WeatherDescription == nil || *l.WeatherDescription != "overcast" {
		t.Errorf("WeatherDescription = %v, want overcast", l.WeatherDescription)
	}
	if !l.Timestamp.IsZero() {
		t.Errorf("Timestamp = %v, want zero when absent", l.Timestamp)
	}
}

// TestWeatherLog_UnmarshalJSON_Rejects verifies values that cannot be converted fail.
func TestWeatherLog_UnmarshalJSON_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"word temperature", `{"temperature_c":"warm"}`},
		{"boolean humidity", `{"humidity":true}`},
		{"nan string", `{"wind_speed_m_s":"NaN"}`},
		{"fractional code", `{"weather_code":2.5}`},
		{"word latitude", `{"latitude":"north"}`},
		{"bad date", `{"timestamp":"yesterday"}`},
		{"object date", `{"timestamp":{}}`},
		{"not an object", `[1,2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l WeatherLog
			if err := json.Unmarshal([]byte(tt.body), &l); err == nil {
				t.Errorf("Unmarshal(%s) error = nil, want error", tt.body)
			}
		})
	}
}

// TestWeatherLog_RoundTrip verifies encoding output decodes back unchanged.
func TestWeatherLog_RoundTrip(t *testing.T) {
	in := WeatherLog{
		ID:           "obs-2",
		Source:       "open-meteo",
		Timestamp:    time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
		TemperatureC: Float(30.5),
		WeatherCode:  Int(61),
	}
	body, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var out WeatherLog
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out.ID != in.ID || !out.Timestamp.Equal(in.Timestamp) || *out.TemperatureC != 30.5 || *out.WeatherCode != 61 || out.Humidity != nil {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}
