// Package insights derives the weather insights summary from stored observations.
// Everything here is a pure function of its input: the same observation sequence
// always yields the same summary.
package insights

import (
	"math"
	"strconv"
	"strings"

	"github.com/kjstillabower/weather-insights-service/internal/models"
)

// Thresholds used by classification, comfort scoring and alerts.
const (
	coldBelow     = 18.0
	hotAbove      = 27.0
	humidComfort  = 70.0
	windComfort   = 10.0
	rainComfort   = 50.0
	trendDelta    = 1.0
	trendMinCount = 3

	heatAlertAt     = 32.0
	coldAlertAt     = 12.0
	rainAlertAt     = 70.0
	humidityAlertAt = 85.0
)

// Alert messages, in the order they are evaluated.
const (
	AlertHeat     = "Intense heat (average above 32°C)."
	AlertCold     = "Intense cold (average below 12°C)."
	AlertRain     = "High chance of rain (probability >= 70%)."
	AlertHumidity = "Very high humidity (>= 85%)."
)

// Compute builds the insights payload from observations sorted by ascending timestamp.
// Missing readings are skipped per field; a field with no readings yields a nil aggregate.
// Callers handle the empty case themselves (see models.NoDataPayload).
func Compute(logs []models.WeatherLog) models.InsightsData {
	var temps, hums, winds, rains []float64
	for _, l := range logs {
		temps = appendPresent(temps, l.TemperatureC)
		hums = appendPresent(hums, l.Humidity)
		winds = appendPresent(winds, l.WindSpeedMS)
		rains = appendPresent(rains, l.PrecipitationProbability)
	}

	tempAvg := mean(temps)
	humAvg := mean(hums)
	windAvg := mean(winds)
	rainMax := maxOf(rains)

	trend := Trend(temps)
	class := Classify(tempAvg)
	comfort := math.Round(ComfortScore(tempAvg, humAvg, windAvg, rainMax))
	alerts := Alerts(tempAvg, humAvg, rainMax)

	return models.InsightsData{
		MeanTemperature:    round2(tempAvg),
		MeanHumidity:       round2(humAvg),
		MeanWindSpeed:      round2(windAvg),
		MaxRainProbability: rainMax,
		Trend:              trend,
		Classification:     class,
		ComfortScore:       comfort,
		Alerts:             alerts,
		SummaryText:        summarize(tempAvg, humAvg, windAvg, rainMax, class, trend, comfort, alerts),
	}
}

// Trend compares the first and last present temperatures. Fewer than three
// readings is always stable.
func Trend(temps []float64) string {
	if len(temps) < trendMinCount {
		return models.TrendStable
	}
	first, last := temps[0], temps[len(temps)-1]
	switch {
	case last > first+trendDelta:
		return models.TrendRising
	case last < first-trendDelta:
		return models.TrendFalling
	default:
		return models.TrendStable
	}
}

// Classify maps the mean temperature to a day type.
func Classify(meanTemp *float64) string {
	if meanTemp == nil {
		return models.ClassUndefined
	}
	switch t := *meanTemp; {
	case t < coldBelow:
		return models.ClassCold
	case t <= hotAbove:
		return models.ClassPleasant
	default:
		return models.ClassHot
	}
}

// ComfortScore returns the unrounded comfort score in [0,100]. Each penalty applies
// only strictly beyond its threshold; nil inputs contribute nothing.
func ComfortScore(meanTemp, meanHumidity, meanWind, maxRain *float64) float64 {
	score := 100.0
	if meanTemp != nil {
		if *meanTemp < coldBelow {
			score -= (coldBelow - *meanTemp) * 2
		}
		if *meanTemp > hotAbove {
			score -= (*meanTemp - hotAbove) * 2
		}
	}
	if meanHumidity != nil && *meanHumidity > humidComfort {
		score -= (*meanHumidity - humidComfort) * 0.5
	}
	if meanWind != nil && *meanWind > windComfort {
		score -= (*meanWind - windComfort) * 1.5
	}
	if maxRain != nil && *maxRain > rainComfort {
		score -= (*maxRain - rainComfort) * 0.5
	}
	return math.Min(100, math.Max(0, score))
}

// Alerts evaluates every alert independently; any number may fire.
func Alerts(meanTemp, meanHumidity, maxRain *float64) []string {
	alerts := []string{}
	if meanTemp != nil && *meanTemp >= heatAlertAt {
		alerts = append(alerts, AlertHeat)
	}
	if meanTemp != nil && *meanTemp <= coldAlertAt {
		alerts = append(alerts, AlertCold)
	}
	if maxRain != nil && *maxRain >= rainAlertAt {
		alerts = append(alerts, AlertRain)
	}
	if meanHumidity != nil && *meanHumidity >= humidityAlertAt {
		alerts = append(alerts, AlertHumidity)
	}
	return alerts
}

func summarize(tempAvg, humAvg, windAvg, rainMax *float64, class, trend string, comfort float64, alerts []string) string {
	var parts []string
	if tempAvg != nil {
		parts = append(parts, "Average temperature of "+fixed(*tempAvg, 1)+"°C ("+class+").")
	}
	if humAvg != nil {
		parts = append(parts, "Average humidity at "+fixed(*humAvg, 1)+"%.")
	}
	if windAvg != nil {
		parts = append(parts, "Average wind at "+fixed(*windAvg, 1)+" m/s.")
	}
	if rainMax != nil {
		parts = append(parts, "Highest recorded rain probability: "+strconv.FormatFloat(*rainMax, 'f', -1, 64)+"%.")
	}
	parts = append(parts, "Temperature trend: "+trend+".")
	parts = append(parts, "Climate comfort index: "+fixed(comfort, 0)+"/100.")
	if len(alerts) > 0 {
		parts = append(parts, "Alerts: "+strings.Join(alerts, " "))
	}
	return strings.Join(parts, " ")
}

func appendPresent(dst []float64, v *float64) []float64 {
	if v == nil {
		return dst
	}
	return append(dst, *v)
}

func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	m := sum / float64(len(values))
	return &m
}

func maxOf(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return &m
}

func round2(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := math.Round(*v*100) / 100
	return &r
}

func fixed(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
