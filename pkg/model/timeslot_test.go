package model

import (
	"testing"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
)

func slot(day Weekday, start, end string) TimeSlot {
	return TimeSlot{Day: day, Start: start, End: end}
}

func TestClockConversion(t *testing.T) {
	assert.Equal(t, 570, TimeToMinutes("09:30"))
	assert.Equal(t, "09:30", MinutesToTime(570))
	assert.Equal(t, 0, TimeToMinutes("00:00"))
	assert.Equal(t, MinutesPerDay, TimeToMinutes("24:00"))
	assert.Equal(t, 545, TimeToMinutes("9:05"))

	t.Run("Round trip over a whole day", func(t *testing.T) {
		for minutes := 0; minutes < MinutesPerDay; minutes++ {
			clock := MinutesToTime(minutes)
			assert.Len(t, clock, 5)
			assert.Equal(t, minutes, TimeToMinutes(clock))
		}
	})

	t.Run("Malformed values", func(t *testing.T) {
		for _, clock := range []string{"", "9", "09:3", "25:00", "24:01", "12:60", "ab:cd", "-1:00", "09:30:00"} {
			assert.Equal(t, -1, TimeToMinutes(clock), clock)
			_, err := ParseClock(clock)
			assert.Error(t, err, clock)
		}
	})

	t.Run("Wrapping", func(t *testing.T) {
		assert.Equal(t, "00:10", MinutesToTime(MinutesPerDay+MinutesPerDay+10))
		assert.Equal(t, "23:50", MinutesToTime(-10))
		assert.Equal(t, "24:00", MinutesToTime(MinutesPerDay))
	})
}

func TestOverlaps(t *testing.T) {
	slots := []TimeSlot{
		slot(Monday, "09:00", "10:00"),
		slot(Monday, "09:30", "10:30"),
		slot(Monday, "10:00", "11:00"),
		slot(Monday, "08:00", "12:00"),
		slot(Tuesday, "09:00", "10:00"),
		slot(Monday, "00:00", "24:00"),
	}

	t.Run("Symmetry", func(t *testing.T) {
		for _, a := range slots {
			for _, b := range slots {
				assert.Equal(t, Overlaps(a, b), Overlaps(b, a), "%v / %v", a, b)
			}
		}
	})

	t.Run("Identical slots overlap", func(t *testing.T) {
		for _, a := range slots {
			assert.True(t, Overlaps(a, a), a.String())
		}
	})

	t.Run("Boundaries are exclusive", func(t *testing.T) {
		assert.False(t, Overlaps(slot(Monday, "09:00", "10:00"), slot(Monday, "10:00", "11:00")))
	})

	t.Run("Containment and days", func(t *testing.T) {
		assert.True(t, Overlaps(slots[3], slots[0]))
		assert.True(t, Overlaps(slots[0], slots[1]))
		assert.False(t, Overlaps(slots[0], slots[4]))
	})

	t.Run("Ranges", func(t *testing.T) {
		window := TimeRange{Start: "09:00", End: "12:00"}
		assert.True(t, WithinRange(slots[1], window))
		assert.False(t, WithinRange(slots[3], window))
		assert.True(t, OverlapsRange(slots[3], window))
		assert.False(t, OverlapsRange(slot(Friday, "12:00", "13:00"), window))
	})
}

func TestDurationsAndGaps(t *testing.T) {
	first := slot(Monday, "09:00", "10:15")
	second := slot(Monday, "10:15", "11:00")
	later := slot(Monday, "13:00", "14:00")
	tuesday := slot(Tuesday, "10:15", "11:00")

	assert.Equal(t, 75, Duration(first))
	assert.Equal(t, 0, Gap(first, second))
	assert.Equal(t, 120, Gap(second, later))
	assert.Equal(t, -1, Gap(first, tuesday))
	assert.True(t, AreBackToBack(first, second))
	assert.True(t, AreBackToBack(second, first))
	assert.False(t, AreBackToBack(first, later))
	assert.False(t, AreBackToBack(first, tuesday))
	assert.InDelta(t, 3.0, WeeklyHours([]TimeSlot{first, second, later}), 1e-9)
	assert.True(t, AnyBackToBack([]TimeSlot{later, first}, []TimeSlot{second}))
}

func TestGrouping(t *testing.T) {
	g := NewWithT(t)
	slots := []TimeSlot{
		slot(Wednesday, "13:00", "14:00"),
		slot(Monday, "11:00", "12:00"),
		slot(Monday, "08:00", "09:00"),
		slot(Wednesday, "07:30", "08:00"),
	}

	groups := GroupByDay(slots)

	g.Expect(groups).To(HaveLen(2))
	g.Expect(groups[Monday]).To(Equal([]TimeSlot{slots[2], slots[1]}))
	g.Expect(groups[Wednesday]).To(Equal([]TimeSlot{slots[3], slots[0]}))

	earliest, ok := EarliestStart(slots)
	g.Expect(ok).To(BeTrue())
	g.Expect(earliest).To(Equal("07:30"))
	latest, ok := LatestEnd(slots)
	g.Expect(ok).To(BeTrue())
	g.Expect(latest).To(Equal("14:00"))

	_, ok = EarliestStart(nil)
	g.Expect(ok).To(BeFalse())
	_, ok = LatestEnd([]TimeSlot{})
	g.Expect(ok).To(BeFalse())
}

func TestWeekdays(t *testing.T) {
	assert.Equal(t, 0, Monday.Index())
	assert.Equal(t, 6, Sunday.Index())
	assert.Equal(t, -1, Weekday("MONDAY").Index())
	assert.False(t, Weekday("").Valid())
	assert.Equal(t, "MON 09:00-10:00@Gym", TimeSlot{Day: Monday, Start: "09:00", End: "10:00", Location: "Gym"}.String())
}
