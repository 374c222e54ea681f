package appointment

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2)
// intersect. Touching endpoints do not overlap.
func Overlaps(s1, e1, s2, e2 TimeOfDay) bool {
	return s1 < e2 && e1 > s2
}

// IsBlocked reports whether a candidate [start, start+duration) collides with
// any active appointment in existing. Callers pass the appointments of one
// doctor on one date; inactive or zero-length entries never block.
func IsBlocked(start TimeOfDay, durationMinutes int, existing []Appointment) bool {
	if durationMinutes <= 0 {
		return false
	}
	end := start.Add(durationMinutes)
	for _, a := range existing {
		if !a.Status.Active() || a.DurationMinutes <= 0 {
			continue
		}
		if Overlaps(start, end, a.Time, a.End()) {
			return true
		}
	}
	return false
}
