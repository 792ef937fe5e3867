// Package cds fetches ERA5 files through the Copernicus Climate Data Store
// API: one bulk retrieval per day covering the whole variable list, with the
// server assembling the GRIB before it can be downloaded.
package cds

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/italolelis/era5_downloader/internal/archive"
	"github.com/italolelis/era5_downloader/internal/catalog"
	"github.com/italolelis/era5_downloader/internal/plan"
)

// DefaultBaseURL is the public CDS API endpoint.
const DefaultBaseURL = "https://cds.climate.copernicus.eu/api/v2"

// Dataset names of the two ERA5 products.
const (
	DatasetPressureLevels = "reanalysis-era5-pressure-levels"
	DatasetSingleLevels   = "reanalysis-era5-single-levels"
)

// Area is a geographic bounding box. Zero value means global coverage.
type Area struct {
	North, West, South, East float64
}

// ParseArea parses a "N,W,S,E" flag value.
func ParseArea(s string) (*Area, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("area must have 4 values N,W,S,E, got %q", s)
	}

	vals := make([]float64, 4)

	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid area value %q: %w", p, err)
		}

		vals[i] = v
	}

	return &Area{North: vals[0], West: vals[1], South: vals[2], East: vals[3]}, nil
}

// retrieveRequest is the JSON descriptor posted to the CDS resources
// endpoint.
type retrieveRequest struct {
	ProductType   string    `json:"product_type"`
	Format        string    `json:"format"`
	Variable      []string  `json:"variable"`
	PressureLevel []string  `json:"pressure_level,omitempty"`
	Year          string    `json:"year"`
	Month         string    `json:"month"`
	Day           string    `json:"day"`
	Time          []string  `json:"time"`
	Area          []float64 `json:"area,omitempty"`
}

// Locator derives one bulk request descriptor per day for a single dataset.
type Locator struct {
	baseURL   string
	dataset   string
	levelKind catalog.LevelType
	area      *Area
}

func NewLocator(baseURL, dataset string, levelKind catalog.LevelType, area *Area) *Locator {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Locator{baseURL: baseURL, dataset: dataset, levelKind: levelKind, area: area}
}

// Ensure Locator implements archive.Locator.
var _ archive.Locator = (*Locator)(nil)

func (l *Locator) Locate(u plan.Unit) (archive.Target, error) {
	if u.Variable != nil {
		return archive.Target{}, fmt.Errorf("cds archive uses bulk units, got per-variable unit for %s", u.Variable.Mnemonic)
	}

	if u.Key.Monthly() {
		return archive.Target{}, fmt.Errorf("cds archive uses daily units, got monthly unit %s", u.Key)
	}

	req := retrieveRequest{
		ProductType: "reanalysis",
		Format:      "grib",
		Year:        fmt.Sprintf("%04d", u.Key.Year),
		Month:       fmt.Sprintf("%02d", u.Key.Month),
		Day:         fmt.Sprintf("%02d", u.Key.Day),
		Time:        hours(),
	}

	switch l.levelKind {
	case catalog.PressureLevels:
		req.Variable = catalog.CDSPressureVariables
		req.PressureLevel = catalog.CDSPressureLevels
	case catalog.SingleLevel:
		req.Variable = catalog.CDSSingleVariables
	default:
		return archive.Target{}, fmt.Errorf("unknown level kind %q", l.levelKind)
	}

	if l.area != nil {
		req.Area = []float64{l.area.North, l.area.West, l.area.South, l.area.East}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return archive.Target{}, fmt.Errorf("failed to marshal retrieve request: %w", err)
	}

	return archive.Target{
		URL:      fmt.Sprintf("%s/resources/%s", l.baseURL, l.dataset),
		Body:     body,
		Filename: fmt.Sprintf("era5_%s_%04d%02d%02d.grib", l.filenameKind(), u.Key.Year, u.Key.Month, u.Key.Day),
	}, nil
}

func (l *Locator) filenameKind() string {
	if l.levelKind == catalog.PressureLevels {
		return "pl"
	}

	return "sl"
}

func hours() []string {
	ts := make([]string, 24)
	for h := range ts {
		ts[h] = fmt.Sprintf("%02d:00", h)
	}

	return ts
}
