// Package export renders weather logs as CSV and XLSX documents.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kjstillabower/weather-insights-service/internal/models"
)

// NoData is written instead of a table when there are no logs.
const NoData = "No data available"

// SheetName is the worksheet holding the logs in XLSX exports.
const SheetName = "Weather Logs"

// Columns is the header row, in output order.
var Columns = []string{
	"id",
	"source",
	"city",
	"latitude",
	"longitude",
	"timestamp",
	"temperature_c",
	"humidity",
	"wind_speed_m_s",
	"weather_code",
	"precipitation_probability",
	"weather_description",
}

// cells returns the typed values of a log in Columns order. Absent readings are nil.
func cells(l models.WeatherLog) []any {
	return []any{
		l.ID,
		l.Source,
		l.City,
		l.Latitude,
		l.Longitude,
		l.Timestamp.UTC().Format(time.RFC3339),
		floatOrNil(l.TemperatureC),
		floatOrNil(l.Humidity),
		floatOrNil(l.WindSpeedMS),
		intOrNil(l.WeatherCode),
		floatOrNil(l.PrecipitationProbability),
		stringOrNil(l.WeatherDescription),
	}
}

// Row formats a log as text fields: nil becomes empty and commas are removed.
func Row(l models.WeatherLog) []string {
	vals := cells(l)
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = text(v)
	}
	return out
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return stripCommas(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	default:
		return stripCommas(fmt.Sprint(x))
	}
}

func stripCommas(s string) string {
	return strings.ReplaceAll(s, ",", "")
}

// WriteCSV writes logs as CSV with a header row.
func WriteCSV(w io.Writer, logs []models.WeatherLog) error {
	if len(logs) == 0 {
		_, err := io.WriteString(w, NoData)
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, l := range logs {
		if err := cw.Write(Row(l)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes logs as a workbook with a single sheet. Numeric readings are
// stored as numeric cells.
func WriteXLSX(w io.Writer, logs []models.WeatherLog) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if len(logs) == 0 {
		if err := f.SetCellValue(SheetName, "A1", NoData); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
		return writeWorkbook(f, w)
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}
	for i, l := range logs {
		vals := cells(l)
		for j, v := range vals {
			switch x := v.(type) {
			case nil:
				vals[j] = ""
			case string:
				vals[j] = stripCommas(x)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &vals); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", i+1, err)
		}
	}
	return writeWorkbook(f, w)
}

func writeWorkbook(f *excelize.File, w io.Writer) error {
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func floatOrNil(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func intOrNil(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func stringOrNil(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
