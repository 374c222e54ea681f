package appointment

import "time"

// GenerateSlots is the pure part of availability: it walks each window from
// its start in fixed SlotStrideMinutes steps, keeps candidates whose end fits
// inside the window and that the conflict guard does not block, and concatenates
// the per-window results in window order.
func GenerateSlots(windows []Window, active []Appointment, durationMinutes int) []Slot {
	slots := make([]Slot, 0)
	if durationMinutes <= 0 {
		return slots
	}

	for _, w := range windows {
		if !w.Active || w.Start >= w.End {
			continue
		}
		for t := w.Start; t.Add(durationMinutes) <= w.End; t = t.Add(SlotStrideMinutes) {
			if IsBlocked(t, durationMinutes, active) {
				continue
			}
			slots = append(slots, Slot{Time: t, Available: true, Duration: durationMinutes})
		}
	}
	return slots
}

// WindowsFor filters windows down to the active ones for the weekday of date.
func WindowsFor(windows []Window, date time.Time) []Window {
	day := date.Weekday()
	out := make([]Window, 0, len(windows))
	for _, w := range windows {
		if w.Active && w.DayOfWeek == day {
			out = append(out, w)
		}
	}
	return out
}

// isPast reports whether date falls strictly before the UTC calendar day of now.
func isPast(date, now time.Time) bool {
	return DateOf(date).Before(DateOf(now.UTC()))
}
