package domain

import (
	"fmt"
	"strings"
	"time"
)

// DayLayout is the calendar-day format used on the command line and in the
// archive directory layout.
const DayLayout = "2006/01/02"

// RefDes is an OOI reference designator such as "CE04OSBP-LJ01C-11-HYDBBA105":
// site, node, port and instrument.
type RefDes struct {
	Site       string
	Node       string
	Port       string
	Instrument string
}

// ParseRefDes splits a reference designator into its four parts.
func ParseRefDes(s string) (RefDes, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 4 {
		return RefDes{}, fmt.Errorf("%w: %q", ErrInvalidRefDes, s)
	}
	for _, p := range parts {
		if p == "" {
			return RefDes{}, fmt.Errorf("%w: %q", ErrInvalidRefDes, s)
		}
	}
	return RefDes{Site: parts[0], Node: parts[1], Port: parts[2], Instrument: parts[3]}, nil
}

func (r RefDes) String() string {
	return r.Site + "-" + r.Node + "-" + r.Port + "-" + r.Instrument
}

// ShortCode is the instrument class and serial, used in artifact names.
func (r RefDes) ShortCode() string {
	return r.Instrument
}

// InstrumentDir is the archive directory name for the sensor ("11-HYDBBA105").
func (r RefDes) InstrumentDir() string {
	return r.Port + "-" + r.Instrument
}

// ArchivePath returns "{site}/{node}/{port}-{instrument}/{YYYY}/{MM}/{DD}".
func (r RefDes) ArchivePath(day time.Time) string {
	return strings.Join([]string{r.Site, r.Node, r.InstrumentDir(), day.Format(DayLayout)}, "/")
}

// ParseArchivePath is the inverse of ArchivePath. It accepts a slash separated
// relative path and ignores anything after the day component.
func ParseArchivePath(rel string) (RefDes, time.Time, error) {
	parts := strings.Split(strings.Trim(rel, "/"), "/")
	if len(parts) < 6 {
		return RefDes{}, time.Time{}, fmt.Errorf("%w: archive path %q", ErrInvalidRefDes, rel)
	}
	port, inst, ok := strings.Cut(parts[2], "-")
	if !ok || port == "" || inst == "" {
		return RefDes{}, time.Time{}, fmt.Errorf("%w: instrument dir %q", ErrInvalidRefDes, parts[2])
	}
	day, err := ParseDay(strings.Join(parts[3:6], "/"))
	if err != nil {
		return RefDes{}, time.Time{}, err
	}
	return RefDes{Site: parts[0], Node: parts[1], Port: port, Instrument: inst}, day, nil
}

// ParseDay accepts "YYYY/MM/DD" or "YYYY-MM-DD" and returns midnight UTC.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DayLayout, time.DateOnly} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("domain: invalid day %q (want YYYY/MM/DD)", s)
}
