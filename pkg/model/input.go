package model

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

// RawSelection references an already chosen section by identifiers only
type RawSelection struct {
	CourseId  string
	SectionId string
}

type RawScheduleRequest struct {
	Courses     []Course
	Constraints ScheduleConstraints
	Candidates  map[string][]string // Optional course id -> section ids narrowing each course's domain
	Selections  []RawSelection
}

type ScheduleRequest struct {
	Courses     []Course
	Constraints ScheduleConstraints
	Candidates  map[string][]string
	Schedule    []ScheduleEntry
	Dropped     []RawSelection // Selections whose course or section is not part of the request
}

func RequestFromJson(file string) (ScheduleRequest, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return ScheduleRequest{}, fmt.Errorf("cannot read request file: %w", err)
	}
	var inputJson map[string]any
	if err := json.Unmarshal(bytes, &inputJson); err != nil {
		return ScheduleRequest{}, fmt.Errorf("cannot parse request file: %w", err)
	}
	return DecodeRequest(inputJson)
}

func DecodeRequest(inputJson map[string]any) (ScheduleRequest, error) {
	var rawRequest RawScheduleRequest
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &rawRequest,
	})
	if err != nil {
		return ScheduleRequest{}, err
	}
	if err := decoder.Decode(inputJson); err != nil {
		return ScheduleRequest{}, fmt.Errorf("cannot decode request: %w", err)
	}
	return ProcessRawRequest(rawRequest), nil
}

// ProcessRawRequest resolves selections against the request's courses. Unresolvable selections are
// dropped and reported through ScheduleRequest.Dropped so the caller can log them.
func ProcessRawRequest(rawRequest RawScheduleRequest) ScheduleRequest {
	request := ScheduleRequest{
		Courses:     make([]Course, 0, len(rawRequest.Courses)),
		Constraints: rawRequest.Constraints,
		Candidates:  rawRequest.Candidates,
		Schedule:    make([]ScheduleEntry, 0, len(rawRequest.Selections)),
		Dropped:     make([]RawSelection, 0),
	}

	//** Manage courses
	for _, course := range rawRequest.Courses {
		// Sections inherit their course id when the payload omits it
		course.Sections = lo.Map(course.Sections, func(section Section, _ int) Section {
			if section.CourseId == "" {
				section.CourseId = course.Id
			}
			return section
		})
		request.Courses = append(request.Courses, course)
	}

	//** Manage selections
	for _, selection := range rawRequest.Selections {
		course, ok := lo.Find(request.Courses, func(course Course) bool { return course.Id == selection.CourseId })
		if !ok {
			request.Dropped = append(request.Dropped, selection)
			continue
		}
		section, ok := course.Section(selection.SectionId)
		if !ok {
			request.Dropped = append(request.Dropped, selection)
			continue
		}
		request.Schedule = append(request.Schedule, ScheduleEntry{Course: course, Section: section})
	}

	return request
}
