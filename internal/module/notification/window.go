package notification

import "time"

// Window returns the half-open calendar day after now, [tomorrow 00:00,
// day after 00:00), in loc. Days are computed on the calendar so DST
// transitions yield 23 or 25 hour windows.
func Window(now time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	y, m, d := local.Date()
	from := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	to := time.Date(y, m, d+2, 0, 0, 0, 0, loc)
	return from, to
}

// dayKey formats the reminder day used in ledger keys.
func dayKey(from time.Time) string {
	return from.Format(time.DateOnly)
}
