package csvio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/limaJavier/athletescheduling/pkg/model"

	"github.com/gocarina/gocsv"
	"github.com/samber/lo"
)

var ErrEmptyCatalog = errors.New("catalog has no sections")

// CatalogRow is one section of the catalog. Course columns repeat on every section of the same course.
type CatalogRow struct {
	CourseId      string `csv:"course_id"`
	Code          string `csv:"code"`
	Name          string `csv:"name"`
	Credits       int    `csv:"credits"`
	Prerequisites string `csv:"prerequisites"` // Codes separated by ';'
	Corequisites  string `csv:"corequisites"`
	SectionId     string `csv:"section_id"`
	Instructor    string `csv:"instructor"`
	Capacity      int    `csv:"capacity"`
	Enrolled      int    `csv:"enrolled"`
	Closed        bool   `csv:"closed"`
	Meetings      string `csv:"meetings"` // e.g. "MON 09:00-10:00@Hall 2;WED 09:00-10:00"
}

type CalendarRow struct {
	Id        string `csv:"id"`
	Type      string `csv:"type"`
	Title     string `csv:"title"`
	Mandatory bool   `csv:"mandatory"`
	Priority  int    `csv:"priority"`
	Meetings  string `csv:"meetings"`
}

// LoadCatalog reads a catalog file. Courses keep the order in which they first appear.
func LoadCatalog(path string) ([]model.Course, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open catalog: %w", err)
	}
	defer file.Close()
	return ReadCatalog(file)
}

func ReadCatalog(in io.Reader) ([]model.Course, error) {
	rows := []*CatalogRow{}
	if err := gocsv.Unmarshal(in, &rows); err != nil {
		return nil, fmt.Errorf("cannot parse catalog: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyCatalog
	}

	courses := make([]model.Course, 0)
	positions := make(map[string]int)
	for line, row := range rows {
		slots, err := ParseMeetings(row.Meetings)
		if err != nil {
			return nil, fmt.Errorf("catalog row %d: %w", line+1, err)
		}
		section := model.Section{
			Id:         row.SectionId,
			CourseId:   row.CourseId,
			Instructor: row.Instructor,
			Capacity:   row.Capacity,
			Enrolled:   row.Enrolled,
			Closed:     row.Closed,
			TimeSlots:  slots,
		}

		position, ok := positions[row.CourseId]
		if !ok {
			position = len(courses)
			positions[row.CourseId] = position
			courses = append(courses, model.Course{
				Id:            row.CourseId,
				Code:          row.Code,
				Name:          row.Name,
				Credits:       row.Credits,
				Prerequisites: splitList(row.Prerequisites),
				Corequisites:  splitList(row.Corequisites),
				Sections:      []model.Section{},
			})
		}
		courses[position].Sections = append(courses[position].Sections, section)
	}

	return courses, nil
}

func LoadCalendar(path string) ([]model.AthleticCommitment, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open athletic calendar: %w", err)
	}
	defer file.Close()
	return ReadCalendar(file)
}

func ReadCalendar(in io.Reader) ([]model.AthleticCommitment, error) {
	rows := []*CalendarRow{}
	if err := gocsv.Unmarshal(in, &rows); err != nil {
		return nil, fmt.Errorf("cannot parse athletic calendar: %w", err)
	}

	commitments := make([]model.AthleticCommitment, 0, len(rows))
	for line, row := range rows {
		slots, err := ParseMeetings(row.Meetings)
		if err != nil {
			return nil, fmt.Errorf("calendar row %d: %w", line+1, err)
		}
		commitments = append(commitments, model.AthleticCommitment{
			Id:        row.Id,
			Type:      model.CommitmentType(strings.ToUpper(strings.TrimSpace(row.Type))),
			Title:     row.Title,
			TimeSlots: slots,
			Mandatory: row.Mandatory,
			Priority:  row.Priority,
		})
	}
	return commitments, nil
}

// ParseMeetings decodes "DAY HH:MM-HH:MM[@location]" entries separated by ';'
func ParseMeetings(meetings string) ([]model.TimeSlot, error) {
	slots := make([]model.TimeSlot, 0)
	for _, meeting := range splitList(meetings) {
		when, location, _ := strings.Cut(meeting, "@")
		day, times, ok := strings.Cut(strings.TrimSpace(when), " ")
		if !ok {
			return nil, fmt.Errorf("malformed meeting %q", meeting)
		}
		start, end, ok := strings.Cut(strings.TrimSpace(times), "-")
		if !ok {
			return nil, fmt.Errorf("malformed meeting time %q", times)
		}
		slot := model.TimeSlot{
			Day:      model.Weekday(strings.ToUpper(day)),
			Start:    strings.TrimSpace(start),
			End:      strings.TrimSpace(end),
			Location: strings.TrimSpace(location),
		}
		if !slot.Day.Valid() {
			return nil, fmt.Errorf("unknown day %q", day)
		}
		if slot.StartMinutes() < 0 || slot.EndMinutes() < 0 {
			return nil, fmt.Errorf("malformed meeting time %q", times)
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

func FormatMeetings(slots []model.TimeSlot) string {
	return strings.Join(lo.Map(slots, func(slot model.TimeSlot, _ int) string { return slot.String() }), ";")
}

func splitList(list string) []string {
	return lo.FilterMap(strings.Split(list, ";"), func(item string, _ int) (string, bool) {
		item = strings.TrimSpace(item)
		return item, item != ""
	})
}
