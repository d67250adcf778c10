package scheduling

import (
	"iter"
	"slices"
)

// Slots yields the start times of the fixed-length slots of a business day, in order.
// A slot is emitted only if it ends no later than closing time. The sequence can be
// ranged over any number of times and always yields the same values.
func (p Policy) Slots() iter.Seq[TimeOfDay] {
	return func(yield func(TimeOfDay) bool) {
		if p.SlotLength <= 0 {
			return
		}
		for t := p.OpenAt; t.Add(p.SlotLength) <= p.CloseAt; t = t.Add(p.SlotLength) {
			if !yield(t) {
				return
			}
		}
	}
}

// GenerateDaySlots collects Slots into a slice.
func GenerateDaySlots(p Policy) []TimeOfDay {
	return slices.Collect(p.Slots())
}
