package plan

import (
	"fmt"
	"time"

	"github.com/italolelis/era5_downloader/internal/catalog"
)

// TemporalKey is the span of time a single remote file covers: one calendar
// day, or a whole month when Day is zero.
type TemporalKey struct {
	Year  int
	Month time.Month
	Day   int
}

// Monthly reports whether the key covers a whole month.
func (k TemporalKey) Monthly() bool {
	return k.Day == 0
}

// LastDay returns the last calendar day of the key's month.
func (k TemporalKey) LastDay() int {
	return time.Date(k.Year, k.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (k TemporalKey) String() string {
	if k.Monthly() {
		return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
	}

	return fmt.Sprintf("%04d-%02d-%02d", k.Year, k.Month, k.Day)
}

// Unit is one discrete download: a temporal key plus, for per-variable
// archives, the variable it fetches. A nil Variable marks a bulk unit that
// covers the archive's whole fixed variable list. Units are immutable values.
type Unit struct {
	Key      TemporalKey
	Variable *catalog.Variable
}

// Request is the validated temporal shape of a run: a month and an inclusive
// day range within it.
type Request struct {
	Year     int
	Month    time.Month
	StartDay int
	EndDay   int
}

// NewRequest validates the day range against the calendar. Empty or inverted
// ranges are rejected so a caller never gets zero units when it expected
// work.
func NewRequest(year int, month time.Month, startDay, endDay int) (Request, error) {
	if month < time.January || month > time.December {
		return Request{}, fmt.Errorf("invalid month %d", month)
	}

	if startDay < 1 || endDay < 1 {
		return Request{}, fmt.Errorf("invalid day range %d-%d: days start at 1", startDay, endDay)
	}

	if startDay > endDay {
		return Request{}, fmt.Errorf("invalid day range %d-%d: start day after end day", startDay, endDay)
	}

	last := TemporalKey{Year: year, Month: month}.LastDay()
	if endDay > last {
		return Request{}, fmt.Errorf("invalid day range %d-%d: %04d-%02d has %d days", startDay, endDay, year, month, last)
	}

	return Request{Year: year, Month: month, StartDay: startDay, EndDay: endDay}, nil
}

// Days returns the inclusive day list of the request.
func (r Request) Days() []int {
	days := make([]int, 0, r.EndDay-r.StartDay+1)
	for d := r.StartDay; d <= r.EndDay; d++ {
		days = append(days, d)
	}

	return days
}

// BulkDaily expands the request into one bulk unit per day, used by the CDS
// archive where a single retrieval covers the whole variable list.
func BulkDaily(r Request) []Unit {
	units := make([]Unit, 0, r.EndDay-r.StartDay+1)
	for _, d := range r.Days() {
		units = append(units, Unit{Key: TemporalKey{Year: r.Year, Month: r.Month, Day: d}})
	}

	return units
}

// PerVariableDaily expands the request into day-outer, variable-inner order:
// one unit per (day, variable) pair.
func PerVariableDaily(r Request, vars []catalog.Variable) []Unit {
	units := make([]Unit, 0, len(r.Days())*len(vars))

	for _, d := range r.Days() {
		for i := range vars {
			units = append(units, Unit{
				Key:      TemporalKey{Year: r.Year, Month: r.Month, Day: d},
				Variable: &vars[i],
			})
		}
	}

	return units
}

// PerVariableMonthly expands the request into one whole-month unit per
// variable; the day range is irrelevant because the archive stores these
// fields in monthly files.
func PerVariableMonthly(r Request, vars []catalog.Variable) []Unit {
	units := make([]Unit, 0, len(vars))

	for i := range vars {
		units = append(units, Unit{
			Key:      TemporalKey{Year: r.Year, Month: r.Month},
			Variable: &vars[i],
		})
	}

	return units
}
