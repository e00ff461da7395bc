package domain

import (
	"sort"
	"time"
)

// AssembleDay orders the pool's entries chronologically. Worker completion
// order carries no meaning, so the sort is the only source of ordering:
// by start, then by interval URL.
func AssembleDay(refdes RefDes, day time.Time, entries []DayEntry) DayResult {
	ordered := make([]DayEntry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		si, sj := ordered[i].Start(), ordered[j].Start()
		if !si.Equal(sj) {
			return si.Before(sj)
		}
		return ordered[i].Interval.URL < ordered[j].Interval.URL
	})
	return DayResult{RefDes: refdes, Day: day, Entries: ordered}
}
