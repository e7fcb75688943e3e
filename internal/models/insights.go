package models

import (
	"encoding/json"
	"time"
)

// Trend labels.
const (
	TrendRising  = "rising"
	TrendFalling = "falling"
	TrendStable  = "stable"
)

// Day-type classification labels.
const (
	ClassCold      = "cold"
	ClassPleasant  = "pleasant"
	ClassHot       = "hot"
	ClassUndefined = "undefined"
)

// NoDataMessage is the placeholder message stored when there are no observations.
const NoDataMessage = "No data available."

// InsightsData is the derived payload computed from the full observation set.
type InsightsData struct {
	MeanTemperature    *float64 `json:"meanTemperature"`
	MeanHumidity       *float64 `json:"meanHumidity"`
	MeanWindSpeed      *float64 `json:"meanWindSpeed"`
	MaxRainProbability *float64 `json:"maxRainProbability"`
	Trend              string   `json:"trend"`
	Classification     string   `json:"classification"`
	ComfortScore       float64  `json:"comfortScore"`
	Alerts             []string `json:"alerts"`
	SummaryText        string   `json:"summaryText"`
}

// InsightsSummary is the singleton insights record. Data holds either an encoded
// InsightsData or the no-data placeholder, kept raw so the document is served verbatim.
type InsightsSummary struct {
	City         string          `json:"city"`
	TotalRecords int             `json:"totalRecords"`
	Data         json.RawMessage `json:"data"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// NoDataPayload returns the encoded placeholder used when the store is empty.
func NoDataPayload() json.RawMessage {
	raw, _ := json.Marshal(map[string]string{"message": NoDataMessage})
	return raw
}
