package telemedicine

import "time"

// FilterSlots applies the inclusive until bound and then the per-doctor limit.
func FilterSlots(slots SlotCollection, until time.Time, limit int) SlotCollection {
	return SlotsUntil(slots, until).Take(limit)
}

// KeepDoctorsWithSlots narrows each doctor's slots by until and limit, orders
// them chronologically and drops doctors left without any. Doctor order is kept.
func KeepDoctorsWithSlots(doctors DoctorCollection, until time.Time, limit int) DoctorCollection {
	var out []Doctor
	for _, d := range doctors.items {
		slots, ok := d.Slots()
		if !ok {
			continue
		}
		slots = SortSlotsChronologically(SlotsUntil(slots, until)).Take(limit)
		if slots.IsEmpty() {
			continue
		}
		out = append(out, d.WithSlots(slots))
	}
	return Collection[Doctor]{items: out}
}

// EndOfDay returns the last representable microsecond of t's day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 999999000, t.Location())
}

// StartOfDay returns midnight of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
