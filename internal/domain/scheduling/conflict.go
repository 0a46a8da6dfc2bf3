package scheduling

import "time"

// BuildBookedIndex marks, for every active appointment, its start instant
// plus BufferMinutes one-minute ticks beginning at start+SlotDuration.
// That is 16 instants per appointment. The first buffer tick is itself
// hour-aligned, so a listing shows the following hour as unavailable too.
//
// Service.checkConflict does not consult this index.
func BuildBookedIndex(appts []*Appointment) BookedIndex {
	idx := make(BookedIndex, len(appts)*(BufferMinutes+1))
	for _, a := range appts {
		if !a.Status.Active() {
			continue
		}
		idx.Add(a.DateTime)
		end := a.DateTime.Add(SlotDuration)
		for i := 0; i < BufferMinutes; i++ {
			idx.Add(end.Add(time.Duration(i) * time.Minute))
		}
	}
	return idx
}
