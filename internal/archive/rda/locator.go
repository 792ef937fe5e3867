// Package rda fetches ERA5 files from the NCAR RDA THREDDS file server
// (dataset ds633.0): one narrow URL per variable, daily files for pressure
// levels and monthly files for surface fields.
package rda

import (
	"fmt"

	"github.com/italolelis/era5_downloader/internal/archive"
	"github.com/italolelis/era5_downloader/internal/catalog"
	"github.com/italolelis/era5_downloader/internal/plan"
)

// DefaultBaseURL is the THREDDS fileServer root for ds633.0.
const DefaultBaseURL = "https://tds.gdex.ucar.edu/thredds/fileServer/files/g/d633000"

// Locator derives RDA URLs and filenames. File naming pattern:
//
//	e5.oper.an.<pl|sfc>.128_<code3>_<short>.ll025<uv|sc>.<YYYYMMDDHH>_<YYYYMMDDHH>.nc
//
// where the hour span is 00-23 of one day for daily files, or day 1 hour 00
// through last-day hour 23 for monthly files.
type Locator struct {
	BaseURL string
}

func NewLocator(baseURL string) *Locator {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Locator{BaseURL: baseURL}
}

func (l *Locator) Locate(u plan.Unit) (archive.Target, error) {
	if u.Variable == nil {
		return archive.Target{}, fmt.Errorf("rda archive requires per-variable units")
	}

	sn, err := catalog.ShortNameFor(u.Variable.Code)
	if err != nil {
		return archive.Target{}, err
	}

	var start, end string

	if u.Key.Monthly() {
		start = fmt.Sprintf("%04d%02d0100", u.Key.Year, u.Key.Month)
		end = fmt.Sprintf("%04d%02d%02d23", u.Key.Year, u.Key.Month, u.Key.LastDay())
	} else {
		date := fmt.Sprintf("%04d%02d%02d", u.Key.Year, u.Key.Month, u.Key.Day)
		start = date + "00"
		end = date + "23"
	}

	filename := fmt.Sprintf("e5.oper.an.%s.128_%03d_%s.ll025%s.%s_%s.nc",
		u.Variable.LevelType, u.Variable.Code, sn.Name, sn.Grid, start, end)

	url := fmt.Sprintf("%s/e5.oper.an.%s/%04d%02d/%s",
		l.BaseURL, u.Variable.LevelType, u.Key.Year, u.Key.Month, filename)

	return archive.Target{URL: url, Filename: filename}, nil
}
