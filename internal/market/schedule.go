package market

import (
	"strconv"
	"strings"
	"time"
)

// A product's availability is a list of weekly slots serialized as
// "weekday,start_hour,end_hour" tuples joined by ';', e.g. "1,10,12;3,14,18".
// Weekday codes follow time.Weekday (Sunday=0 .. Saturday=6).

type Slot struct {
	Weekday   time.Weekday
	StartHour int
	EndHour   int
}

type Schedule []Slot

const (
	slotSep  = ";"
	fieldSep = ","
)

// ParseSchedule is lenient: malformed slots are skipped, never fatal.
func ParseSchedule(raw string) Schedule {
	var out Schedule
	for _, part := range strings.Split(raw, slotSep) {
		fields := strings.Split(strings.TrimSpace(part), fieldSep)
		if len(fields) != 3 {
			continue
		}
		wd, err1 := strconv.Atoi(strings.TrimSpace(fields[0]))
		start, err2 := strconv.Atoi(strings.TrimSpace(fields[1]))
		end, err3 := strconv.Atoi(strings.TrimSpace(fields[2]))
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		out = append(out, Slot{Weekday: time.Weekday(wd), StartHour: start, EndHour: end})
	}
	return out
}

// Covers reports whether t falls inside any slot. The comparison is at hour
// granularity over the half-open interval [start, end): minutes are ignored,
// so 12:59 still matches a slot ending at 13. Weekday and hour are taken in
// t's own location.
func (s Schedule) Covers(t time.Time) bool {
	for _, slot := range s {
		if t.Weekday() != slot.Weekday {
			continue
		}
		if h := t.Hour(); slot.StartHour <= h && h < slot.EndHour {
			return true
		}
	}
	return false
}

// ReservationInfo renders the human-readable booking summary stored on the
// request row.
func ReservationInfo(t time.Time) string {
	return "Reservation for " + t.Format("02/01/2006") + " at " + t.Format("15:04") + " hrs"
}
