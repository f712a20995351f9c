package report

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata" // zone lookups must work on minimal container images
)

var (
	ErrUnknownTimezone  = errors.New("unknown timezone")
	ErrTimezoneMismatch = errors.New("timezone mismatch")
)

// CheckTimezone compares the UTC offset of the report's IANA zone at now with
// the offset of now's own location. It only feeds warnings; local date and
// time strings are never converted.
func CheckTimezone(zone string, now time.Time) error {
	if zone == "" {
		return nil
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownTimezone, zone)
	}
	_, reportOffset := now.In(loc).Zone()
	_, localOffset := now.Zone()
	if reportOffset != localOffset {
		return fmt.Errorf("%w: report is in %s (UTC%+.1f), server is at UTC%+.1f",
			ErrTimezoneMismatch, zone, float64(reportOffset)/3600, float64(localOffset)/3600)
	}
	return nil
}
