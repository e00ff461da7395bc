package domain

import (
	"net/url"
	"path"
	"regexp"
	"time"
)

// Interval is one nominal recording window discovered in the archive.
type Interval struct {
	Index      int
	URL        string
	Name       string
	Start      time.Time // nominal
	Duration   time.Duration
	SampleRate float64
}

// Archive file names embed their start time, e.g.
// "OO-HYEA2--YDH-2025-01-16T00:05:00.000000.mseed".
var fileTimestamp = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})T(\d{2}):?(\d{2}):?(\d{2})(\.\d+)?`)

// NewInterval builds the interval for the file at position index of a day's
// sorted listing. The nominal start comes from the file name when it carries
// a timestamp and from the listing position otherwise. URL stays escaped for
// fetching while Name is decoded, so "T00%3A05%3A00" reads as "T00:05:00".
func NewInterval(index int, rawURL string, day time.Time, duration time.Duration, sampleRate float64) Interval {
	name := path.Base(rawURL)
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	start, ok := StartFromName(name)
	if !ok {
		start = day.Add(time.Duration(index) * duration)
	}
	return Interval{
		Index:      index,
		URL:        rawURL,
		Name:       name,
		Start:      start,
		Duration:   duration,
		SampleRate: sampleRate,
	}
}

// StartFromName extracts the UTC timestamp embedded in an archive file name.
func StartFromName(name string) (time.Time, bool) {
	m := fileTimestamp.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}
	stamp := m[1] + "T" + m[2] + ":" + m[3] + ":" + m[4] + m[5]
	t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", stamp, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// NominalSamples is the sample count of a complete interval.
func NominalSamples(duration time.Duration, sampleRate float64) int {
	return int(duration.Seconds()*sampleRate + 0.5)
}

// ArtifactName is the base name the downstream encoder uses for a repaired
// segment: "{instrument}_{YYYYMMDD_HHMMSS}".
func ArtifactName(shortCode string, start time.Time) string {
	return shortCode + "_" + start.UTC().Format("20060102_150405")
}
