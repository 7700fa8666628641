package distribution

import (
	"time"

	"github.com/jakechorley/oncall-roster/pkg/core/model"
)

// Preserved reports whether a reset keeps the slot: pre-attributions and Friday long nights
// already held when the planning was loaded. Friday long nights placed by a run are cleared.
func Preserved(s *model.TimeSlot) bool {
	if s.PreAttributed {
		return true
	}
	return s.Carried && s.PostType == model.PostNL && !s.IsOpen() && s.Date().Weekday() == time.Friday
}

// Reset clears every assignment a reset does not preserve and returns how many were cleared
func Reset(planning *model.Planning) int {
	cleared := 0
	for _, day := range planning.Days {
		for _, s := range day.Slots {
			if s.IsOpen() || Preserved(s) {
				continue
			}
			planning.Unassign(s)
			cleared++
		}
	}
	return cleared
}
