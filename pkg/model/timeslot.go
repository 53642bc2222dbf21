package model

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

type Weekday string

const (
	Monday    Weekday = "MON"
	Tuesday   Weekday = "TUE"
	Wednesday Weekday = "WED"
	Thursday  Weekday = "THU"
	Friday    Weekday = "FRI"
	Saturday  Weekday = "SAT"
	Sunday    Weekday = "SUN"
)

// Weekdays in calendar order, used whenever output must be deterministic
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

const MinutesPerDay = 24 * 60

// Index returns the position of the day inside the week (MON = 0) or -1 if the day is unknown
func (day Weekday) Index() int {
	return slices.Index(Weekdays, day)
}

func (day Weekday) Valid() bool {
	return day.Index() >= 0
}

// TimeSlot is a weekly meeting block. Start and End are wall-clock "HH:MM" values on the institutional calendar.
type TimeSlot struct {
	Day      Weekday `json:"day" validate:"required,weekday"`
	Start    string  `json:"start" validate:"required,clock"`
	End      string  `json:"end" validate:"required,clock"`
	Location string  `json:"location,omitempty"`
}

// TimeRange is a day-independent window such as a preferred study block
type TimeRange struct {
	Start string `json:"start" validate:"required,clock"`
	End   string `json:"end" validate:"required,clock"`
}

func (slot TimeSlot) StartMinutes() int { return TimeToMinutes(slot.Start) }
func (slot TimeSlot) EndMinutes() int   { return TimeToMinutes(slot.End) }

func (slot TimeSlot) String() string {
	if slot.Location == "" {
		return fmt.Sprintf("%v %v-%v", slot.Day, slot.Start, slot.End)
	}
	return fmt.Sprintf("%v %v-%v@%v", slot.Day, slot.Start, slot.End, slot.Location)
}

// ParseClock converts an "HH:MM" value into its minute of the day. "24:00" is accepted so that a block may end at midnight.
func ParseClock(clock string) (int, error) {
	hoursStr, minutesStr, ok := strings.Cut(strings.TrimSpace(clock), ":")
	if !ok || len(minutesStr) != 2 || len(hoursStr) == 0 || len(hoursStr) > 2 {
		return 0, fmt.Errorf("invalid clock value %q: expected HH:MM", clock)
	}
	hours, err := strconv.Atoi(hoursStr)
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", clock, err)
	}
	minutes, err := strconv.Atoi(minutesStr)
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", clock, err)
	}
	if hours < 0 || minutes < 0 || minutes > 59 || hours > 24 || (hours == 24 && minutes != 0) {
		return 0, fmt.Errorf("invalid clock value %q: out of range", clock)
	}
	return hours*60 + minutes, nil
}

// TimeToMinutes returns the minute of the day for an "HH:MM" value, or -1 when the value is malformed
func TimeToMinutes(clock string) int {
	minutes, err := ParseClock(clock)
	if err != nil {
		return -1
	}
	return minutes
}

// MinutesToTime is the inverse of TimeToMinutes. Values outside a single day wrap around.
func MinutesToTime(minutes int) string {
	if minutes == MinutesPerDay {
		return "24:00"
	}
	minutes = ((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Half-open interval intersection: touching boundaries do not overlap
func rangesOverlap(start1, end1, start2, end2 int) bool {
	return start1 < end2 && start2 < end1
}

// Overlaps reports whether two slots share at least one minute on the same day
func Overlaps(slot1, slot2 TimeSlot) bool {
	return slot1.Day == slot2.Day && rangesOverlap(slot1.StartMinutes(), slot1.EndMinutes(), slot2.StartMinutes(), slot2.EndMinutes())
}

// OverlapsRange reports whether the slot intersects the window, regardless of the day
func OverlapsRange(slot TimeSlot, window TimeRange) bool {
	return rangesOverlap(slot.StartMinutes(), slot.EndMinutes(), TimeToMinutes(window.Start), TimeToMinutes(window.End))
}

// WithinRange reports whether the slot is fully contained in the window
func WithinRange(slot TimeSlot, window TimeRange) bool {
	return slot.StartMinutes() >= TimeToMinutes(window.Start) && slot.EndMinutes() <= TimeToMinutes(window.End)
}

// Duration in minutes
func Duration(slot TimeSlot) int {
	return slot.EndMinutes() - slot.StartMinutes()
}

// Gap returns the minutes between the end of slot1 and the start of slot2, or -1 when they are on different days.
// Same-day slots that overlap (or where slot2 starts first) yield a negative value as well.
func Gap(slot1, slot2 TimeSlot) int {
	if slot1.Day != slot2.Day {
		return -1
	}
	return slot2.StartMinutes() - slot1.EndMinutes()
}

// AreBackToBack reports whether one slot ends exactly when the other starts, in either order
func AreBackToBack(slot1, slot2 TimeSlot) bool {
	if slot1.Day != slot2.Day {
		return false
	}
	return Gap(slot1, slot2) == 0 || Gap(slot2, slot1) == 0
}

// WeeklyHours sums the duration of every slot, in hours
func WeeklyHours(slots []TimeSlot) float64 {
	return float64(lo.SumBy(slots, Duration)) / 60
}

// GroupByDay buckets slots per day, each bucket sorted by start time
func GroupByDay(slots []TimeSlot) map[Weekday][]TimeSlot {
	groups := lo.GroupBy(slots, func(slot TimeSlot) Weekday { return slot.Day })
	for day := range groups {
		slices.SortStableFunc(groups[day], func(a, b TimeSlot) int {
			return a.StartMinutes() - b.StartMinutes()
		})
	}
	return groups
}

// EarliestStart returns the earliest start time across slots; ok is false on empty input
func EarliestStart(slots []TimeSlot) (clock string, ok bool) {
	if len(slots) == 0 {
		return "", false
	}
	earliest := lo.MinBy(slots, func(a, b TimeSlot) bool { return a.StartMinutes() < b.StartMinutes() })
	return earliest.Start, true
}

// LatestEnd returns the latest end time across slots; ok is false on empty input
func LatestEnd(slots []TimeSlot) (clock string, ok bool) {
	if len(slots) == 0 {
		return "", false
	}
	latest := lo.MaxBy(slots, func(a, b TimeSlot) bool { return a.EndMinutes() > b.EndMinutes() })
	return latest.End, true
}

// OverlappingPairs lists every (a, b) pair of slots, a from slots1 and b from slots2, that overlap
func OverlappingPairs(slots1, slots2 []TimeSlot) [][2]TimeSlot {
	pairs := make([][2]TimeSlot, 0)
	for _, slot1 := range slots1 {
		for _, slot2 := range slots2 {
			if Overlaps(slot1, slot2) {
				pairs = append(pairs, [2]TimeSlot{slot1, slot2})
			}
		}
	}
	return pairs
}

// AnyOverlap is the short-circuit form of OverlappingPairs
func AnyOverlap(slots1, slots2 []TimeSlot) bool {
	return lo.SomeBy(slots1, func(slot1 TimeSlot) bool {
		return lo.SomeBy(slots2, func(slot2 TimeSlot) bool { return Overlaps(slot1, slot2) })
	})
}

// AnyBackToBack reports whether any slot of slots1 is back-to-back with a slot of slots2
func AnyBackToBack(slots1, slots2 []TimeSlot) bool {
	return lo.SomeBy(slots1, func(slot1 TimeSlot) bool {
		return lo.SomeBy(slots2, func(slot2 TimeSlot) bool { return AreBackToBack(slot1, slot2) })
	})
}
