package sequencer

import (
	"sort"
)

// mergeTracks concatenates the tracks and sorts the result by time.
// Events at the same time stay in track order, then file order.
func mergeTracks(tracks [][]Event) []Event {
	n := 0
	for _, t := range tracks {
		n += len(t)
	}
	events := make([]Event, 0, n)
	for _, t := range tracks {
		events = append(events, t...)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time < events[j].Time
	})
	return events
}
