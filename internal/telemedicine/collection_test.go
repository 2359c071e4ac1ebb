package telemedicine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slotAt(id string, ts string) AppointmentSlot {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		panic(err)
	}
	return AppointmentSlot{ID: id, DateTime: t}
}

func TestCollectionAddIsCopyOnWrite(t *testing.T) {
	base := NewCollection(slotAt("1", "2023-02-17T15:00:00Z"))
	grown := base.Add(slotAt("2", "2023-02-18T15:00:00Z"))

	assert.Equal(t, 1, base.Len())
	assert.Equal(t, 2, grown.Len())

	items := grown.Items()
	items[0].ID = "mutated"
	first, _ := grown.First()
	assert.Equal(t, "1", first.ID)
}

func TestCollectionAddAnyRejectsWrongType(t *testing.T) {
	slots := NewCollection(slotAt("1", "2023-02-17T15:00:00Z"))

	out, err := slots.AddAny(Doctor{ID: "d1"})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Equal(t, 1, out.Len())
	assert.Equal(t, 1, slots.Len())

	out, err = slots.AddAny(slotAt("2", "2023-02-18T15:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
}

func TestCollectionAt(t *testing.T) {
	c := NewCollection("a", "b")

	v, err := c.At(1)
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	_, err = c.At(2)
	assert.True(t, IsValidationError(err))
	_, err = c.At(-1)
	assert.Error(t, err)
}

func TestCollectionFilterMapContains(t *testing.T) {
	c := NewCollection(1, 2, 3, 4)

	even := c.Filter(func(v int) bool { return v%2 == 0 })
	assert.Equal(t, []int{2, 4}, even.Items())

	doubled := MapCollection(c, func(v int) int { return v * 2 })
	assert.Equal(t, []int{2, 4, 6, 8}, doubled.Items())

	assert.True(t, c.Contains(func(v int) bool { return v == 3 }))
	assert.False(t, c.Contains(func(v int) bool { return v == 9 }))
	assert.True(t, NewCollection[int]().IsEmpty())
	assert.Equal(t, []int{1, 2}, c.Take(2).Items())
	assert.Equal(t, 4, c.Take(0).Len())
}

func TestSortByDoctorSlot(t *testing.T) {
	a := Doctor{ID: "a", Name: "Ana"}.WithSlots(NewCollection(slotAt("1", "2023-01-02T10:00:00Z")))
	b := Doctor{ID: "b", Name: "Bruno"}.WithSlots(NewCollection(slotAt("2", "2023-01-02T10:00:00Z")))
	c := Doctor{ID: "c", Name: "Carla"}.WithSlots(NewCollection(
		slotAt("4", "2023-01-03T10:00:00Z"),
		slotAt("3", "2023-01-01T10:00:00Z"),
	))

	sorted, err := SortByDoctorSlot(NewCollection(b, a, c))
	require.NoError(t, err)

	var ids []string
	sorted.Each(func(_ int, d Doctor) { ids = append(ids, d.ID) })
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestSortByDoctorSlotRequiresSlots(t *testing.T) {
	withSlots := Doctor{ID: "a"}.WithSlots(NewCollection(slotAt("1", "2023-01-02T10:00:00Z")))
	_, err := SortByDoctorSlot(NewCollection(withSlots, Doctor{ID: "b"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot sort doctors without slots")
}

func TestSlotsUntilIsInclusive(t *testing.T) {
	bound, _ := time.Parse(time.RFC3339, "2023-02-18T15:00:00Z")
	slots := NewCollection(
		slotAt("1", "2023-02-17T15:00:00Z"),
		slotAt("2", "2023-02-18T15:00:00Z"),
		slotAt("3", "2023-02-18T15:00:01Z"),
	)

	got := SlotsUntil(slots, bound)
	require.Equal(t, 2, got.Len())
	got.Each(func(_ int, s AppointmentSlot) {
		assert.False(t, s.DateTime.After(bound))
	})
	assert.Equal(t, 3, SlotsUntil(slots, time.Time{}).Len())
}

func TestKeepDoctorsWithSlotsDropsEmpty(t *testing.T) {
	bound, _ := time.Parse(time.RFC3339, "2023-02-18T00:00:00Z")
	early := Doctor{ID: "1", Name: "Doctor 1"}.WithSlots(NewCollection(
		slotAt("2", "2023-02-18T15:00:00Z"),
		slotAt("1", "2023-02-17T15:00:00Z"),
	))
	late := Doctor{ID: "2", Name: "Doctor 2"}.WithSlots(NewCollection(slotAt("3", "2023-02-18T16:00:00Z")))
	unloaded := Doctor{ID: "3", Name: "Doctor 3"}

	got := KeepDoctorsWithSlots(NewCollection(early, late, unloaded), bound, 0)
	require.Equal(t, 1, got.Len())

	d, _ := got.First()
	slots, ok := d.Slots()
	require.True(t, ok)
	require.Equal(t, 1, slots.Len())
	first, _ := slots.First()
	assert.Equal(t, "1", first.ID)
}

func TestKeepDoctorsWithSlotsSortsAndLimits(t *testing.T) {
	d := Doctor{ID: "1"}.WithSlots(NewCollection(
		slotAt("b", "2023-02-18T15:00:00Z"),
		slotAt("a", "2023-02-17T15:00:00Z"),
		slotAt("c", "2023-02-19T15:00:00Z"),
	))

	got := KeepDoctorsWithSlots(NewCollection(d), time.Time{}, 2)
	doc, _ := got.First()
	slots, _ := doc.Slots()
	assert.Equal(t, []string{"a", "b"}, slotIDs(slots))
}

func TestDoctorWithSlotsReturnsNewValue(t *testing.T) {
	d := Doctor{ID: "1"}
	withSlots := d.WithSlots(NewCollection(slotAt("1", "2023-02-17T15:00:00Z")))

	assert.False(t, d.HasSlots())
	assert.True(t, withSlots.HasSlots())
	assert.True(t, Doctor{}.WithSlots(NewCollection[AppointmentSlot]()).HasSlots())
}

func slotIDs(c SlotCollection) []string {
	var ids []string
	c.Each(func(_ int, s AppointmentSlot) { ids = append(ids, s.ID) })
	return ids
}
