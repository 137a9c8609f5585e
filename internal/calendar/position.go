package calendar

// Position is a whole number of days since an epoch date. Positions are
// always integral; fractional day offsets are rounded by whoever creates them
// and never stored.
type Position int

// PositionOf returns the position of d relative to epoch.
func PositionOf(epoch, d Date) Position {
	return Position(DaysBetween(epoch, d))
}

// Date converts p back into a calendar date relative to epoch.
func (p Position) Date(epoch Date) Date {
	return epoch.AddDays(int(p))
}

// Clamp limits p to [lo, hi].
func (p Position) Clamp(lo, hi Position) Position {
	if p < lo {
		return lo
	}
	if p > hi {
		return hi
	}
	return p
}
