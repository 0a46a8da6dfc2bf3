package scheduling

import "time"

const (
	// SlotDuration is the fixed length of every appointment.
	SlotDuration = time.Hour
	// FirstSlotHour and LastSlotHour bound the bookable start hours (inclusive).
	FirstSlotHour = 9
	LastSlotHour  = 16
	// BufferMinutes is the number of one-minute ticks marked occupied after
	// an appointment's nominal end when building the listing index.
	BufferMinutes = 15
	// DefaultRangeDays is added to the start day when no end date is given.
	DefaultRangeDays = 6
)

// BookedIndex is the set of occupied instants, keyed by Unix milliseconds so
// that equal instants in different locations collide.
type BookedIndex map[int64]struct{}

func (b BookedIndex) Add(t time.Time) { b[t.UnixMilli()] = struct{}{} }

func (b BookedIndex) Has(t time.Time) bool {
	_, ok := b[t.UnixMilli()]
	return ok
}

func (b BookedIndex) Len() int { return len(b) }

// ResolveRange truncates start to midnight and end to the last millisecond of
// its day, both in loc. A nil end resolves to start + DefaultRangeDays.
func ResolveRange(start time.Time, end *time.Time, loc *time.Location) (time.Time, time.Time) {
	rangeStart := startOfDay(start, loc)
	var last time.Time
	if end != nil {
		last = startOfDay(*end, loc)
	} else {
		last = rangeStart.AddDate(0, 0, DefaultRangeDays)
	}
	rangeEnd := last.AddDate(0, 0, 1).Add(-time.Millisecond)
	return rangeStart, rangeEnd
}

// GenerateSlots walks every day in [rangeStart, rangeEnd] and emits the hourly
// candidates from FirstSlotHour to LastSlotHour in ascending order. Candidates
// on days before now's day, or at or before now, are omitted entirely.
func GenerateSlots(rangeStart, rangeEnd time.Time, booked BookedIndex, now time.Time, loc *time.Location) []Slot {
	if loc == nil {
		loc = time.UTC
	}
	today := startOfDay(now, loc)
	var slots []Slot
	for day := startOfDay(rangeStart, loc); !day.After(rangeEnd); day = day.AddDate(0, 0, 1) {
		if day.Before(today) {
			continue
		}
		y, m, d := day.Date()
		for hour := FirstSlotHour; hour <= LastSlotHour; hour++ {
			candidate := time.Date(y, m, d, hour, 0, 0, 0, loc)
			if !candidate.After(now) {
				continue
			}
			slots = append(slots, Slot{
				DateTime:  candidate.UTC(),
				Available: !booked.Has(candidate),
			})
		}
	}
	return slots
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
