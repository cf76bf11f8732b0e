package domain

import (
	"fmt"
	"regexp"
	"time"
)

var granuleStart = regexp.MustCompile(`\.(\d{8})-S(\d{4})`)

// FormatRunLabel renders a model run as "18 Dec 2025 - 00:00 UTC". Inputs
// that do not parse fall back to "{date} {hour}z".
func FormatRunLabel(date, hour string) string {
	t, err := time.Parse("20060102 15", date+" "+hour)
	if err != nil {
		return fmt.Sprintf("%s %sz", date, hour)
	}
	return t.Format("02 Jan 2006 - 15:00 UTC")
}

// ParseGranuleLabel extracts the scan start time from a satellite granule
// name such as "3B-HHR.MS.MRG.3IMERG.20240426-S153000-E155959.0930.V07B.HDF5".
// Names without a start stamp are truncated to 25 characters.
func ParseGranuleLabel(filename string) string {
	if m := granuleStart.FindStringSubmatch(filename); m != nil {
		if t, err := time.Parse("200601021504", m[1]+m[2]); err == nil {
			return t.Format("02 Jan 2006 - 15:04 UTC")
		}
	}
	if len(filename) > 25 {
		return filename[:25] + "..."
	}
	return filename + "..."
}

// ValidateRun checks a model run identifier: an 8-digit date and a
// 2-digit cycle hour.
func ValidateRun(date, hour string) error {
	if _, err := time.Parse("20060102", date); err != nil || len(date) != 8 {
		return fmt.Errorf("%w: date %q must be YYYYMMDD", ErrConfiguration, date)
	}
	if _, err := time.Parse("15", hour); err != nil || len(hour) != 2 {
		return fmt.Errorf("%w: hour %q must be HH", ErrConfiguration, hour)
	}
	return nil
}

// ModelRun identifies a forecast model cycle.
type ModelRun struct {
	Date string // YYYYMMDD
	Hour string // HH
}

// Validate is ValidateRun for r.
func (r ModelRun) Validate() error { return ValidateRun(r.Date, r.Hour) }

// Label renders the run for display.
func (r ModelRun) Label() string { return FormatRunLabel(r.Date, r.Hour) }

// ID is the run's compact identifier, e.g. "20251218-00".
func (r ModelRun) ID() string { return r.Date + "-" + r.Hour }
