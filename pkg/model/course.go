package model

import (
	"github.com/samber/lo"
)

type Section struct {
	Id         string     `json:"id" validate:"required"`
	CourseId   string     `json:"courseId,omitempty"`
	Instructor string     `json:"instructor,omitempty"`
	Capacity   int        `json:"capacity" validate:"gte=0"`
	Enrolled   int        `json:"enrolled" validate:"gte=0"`
	Closed     bool       `json:"closed,omitempty"`
	TimeSlots  []TimeSlot `json:"timeSlots" validate:"dive"`
}

// Open reports whether the section still accepts students
func (section Section) Open() bool {
	return !section.Closed && section.Enrolled < section.Capacity
}

type Course struct {
	Id            string    `json:"id" validate:"required"`
	Code          string    `json:"code" validate:"required"`
	Name          string    `json:"name,omitempty"`
	Credits       int       `json:"credits" validate:"gte=0"`
	Prerequisites []string  `json:"prerequisites,omitempty"`
	Corequisites  []string  `json:"corequisites,omitempty"`
	Sections      []Section `json:"sections,omitempty" validate:"dive"`
}

func (course Course) Section(id string) (Section, bool) {
	return lo.Find(course.Sections, func(section Section) bool { return section.Id == id })
}

// OpenSections keeps catalog order
func (course Course) OpenSections() []Section {
	return lo.Filter(course.Sections, func(section Section, _ int) bool { return section.Open() })
}

// ScheduleEntry pairs a course with the section chosen for it
type ScheduleEntry struct {
	Course  Course  `json:"course"`
	Section Section `json:"section"`
}

func TotalCredits(entries []ScheduleEntry) int {
	return lo.SumBy(entries, func(entry ScheduleEntry) int { return entry.Course.Credits })
}

func CourseCredits(courses []Course) int {
	return lo.SumBy(courses, func(course Course) int { return course.Credits })
}
