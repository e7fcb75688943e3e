package http

import (
	"net/http"

	"github.com/kjstillabower/weather-insights-service/internal/models"
)

// CreateWeatherLog handles POST /api/weather/logs.
func (h *Handler) CreateWeatherLog(w http.ResponseWriter, r *http.Request) {
	var in models.WeatherLog
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	stored, err := h.weather.CreateLog(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

// ListWeatherLogs handles GET /api/weather/logs.
func (h *Handler) ListWeatherLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.weather.ListLogs(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if logs == nil {
		logs = []models.WeatherLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

// ExportCSV handles GET /api/weather/export.csv.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	body, err := h.weather.ExportCSV(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeAttachment(w, "text/csv; charset=utf-8", "weather_logs.csv", body)
}

// ExportXLSX handles GET /api/weather/export.xlsx.
func (h *Handler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	body, err := h.weather.ExportXLSX(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeAttachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "weather_logs.xlsx", body)
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// GetInsights handles GET and POST /api/weather/insights.
func (h *Handler) GetInsights(w http.ResponseWriter, r *http.Request) {
	summary, err := h.weather.GetInsights(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
