package csvio

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/limaJavier/athletescheduling/pkg/model"

	"github.com/gocarina/gocsv"
	"github.com/samber/lo"
)

// ScheduleRow is one weekly meeting of a scheduled section
type ScheduleRow struct {
	CourseCode string `csv:"course_code"`
	CourseName string `csv:"course_name"`
	Credits    int    `csv:"credits"`
	SectionId  string `csv:"section_id"`
	Instructor string `csv:"instructor"`
	Day        string `csv:"day"`
	Start      string `csv:"start"`
	End        string `csv:"end"`
	Location   string `csv:"location"`
}

// ConflictRow flattens a conflict; list columns are joined with ';'
type ConflictRow struct {
	Type        string `csv:"type"`
	Severity    string `csv:"severity"`
	Courses     string `csv:"courses"`
	Message     string `csv:"message"`
	Suggestions string `csv:"suggestions"`
}

// scheduleRows orders rows by weekday, then start time, keeping schedule order among equals
func scheduleRows(entries []model.ScheduleEntry) []*ScheduleRow {
	rows := make([]*ScheduleRow, 0)
	for _, day := range model.Weekdays {
		dayRows := make([]*ScheduleRow, 0)
		for _, entry := range entries {
			for _, slot := range entry.Section.TimeSlots {
				if slot.Day != day {
					continue
				}
				dayRows = append(dayRows, &ScheduleRow{
					CourseCode: entry.Course.Code,
					CourseName: entry.Course.Name,
					Credits:    entry.Course.Credits,
					SectionId:  entry.Section.Id,
					Instructor: entry.Section.Instructor,
					Day:        string(slot.Day),
					Start:      slot.Start,
					End:        slot.End,
					Location:   slot.Location,
				})
			}
		}
		slices.SortStableFunc(dayRows, func(a, b *ScheduleRow) int {
			return model.TimeToMinutes(a.Start) - model.TimeToMinutes(b.Start)
		})
		rows = append(rows, dayRows...)
	}
	return rows
}

func MarshalSchedule(entries []model.ScheduleEntry) (string, error) {
	rows := scheduleRows(entries)
	csv, err := gocsv.MarshalString(&rows)
	if err != nil {
		return "", fmt.Errorf("cannot marshal schedule: %w", err)
	}
	return csv, nil
}

// ExportSchedule writes the schedule to path, replacing any existing file
func ExportSchedule(entries []model.ScheduleEntry, path string) error {
	csv, err := MarshalSchedule(entries)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(csv), 0666); err != nil {
		return fmt.Errorf("cannot write schedule file: %w", err)
	}
	return nil
}

func MarshalConflicts(conflicts []model.Conflict) (string, error) {
	rows := lo.Map(conflicts, func(conflict model.Conflict, _ int) *ConflictRow {
		return &ConflictRow{
			Type:        string(conflict.Type),
			Severity:    string(conflict.Severity),
			Courses:     strings.Join(conflict.Courses, ";"),
			Message:     conflict.Message,
			Suggestions: strings.Join(conflict.Suggestions, ";"),
		}
	})
	csv, err := gocsv.MarshalString(&rows)
	if err != nil {
		return "", fmt.Errorf("cannot marshal conflicts: %w", err)
	}
	return csv, nil
}

// ExportConflicts writes the conflicts to path, replacing any existing file
func ExportConflicts(conflicts []model.Conflict, path string) error {
	csv, err := MarshalConflicts(conflicts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(csv), 0666); err != nil {
		return fmt.Errorf("cannot write conflicts file: %w", err)
	}
	return nil
}

// ExportCatalog writes courses in the layout LoadCatalog reads, one row per section
func ExportCatalog(courses []model.Course, path string) error {
	rows := make([]*CatalogRow, 0)
	for _, course := range courses {
		for _, section := range course.Sections {
			rows = append(rows, &CatalogRow{
				CourseId:      course.Id,
				Code:          course.Code,
				Name:          course.Name,
				Credits:       course.Credits,
				Prerequisites: strings.Join(course.Prerequisites, ";"),
				Corequisites:  strings.Join(course.Corequisites, ";"),
				SectionId:     section.Id,
				Instructor:    section.Instructor,
				Capacity:      section.Capacity,
				Enrolled:      section.Enrolled,
				Closed:        section.Closed,
				Meetings:      FormatMeetings(section.TimeSlots),
			})
		}
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create catalog file: %w", err)
	}
	defer out.Close()

	if err := gocsv.MarshalFile(&rows, out); err != nil {
		return fmt.Errorf("cannot write catalog file: %w", err)
	}
	return nil
}
