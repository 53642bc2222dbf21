package model

// ScheduleResult is recomputed per request and never mutated afterwards
type ScheduleResult struct {
	Success      bool            `json:"success"`
	Schedule     []ScheduleEntry `json:"schedule"`
	Conflicts    []Conflict      `json:"conflicts"`
	Warnings     []Warning       `json:"warnings,omitempty"`
	TotalCredits int             `json:"totalCredits"`
	Score        float64         `json:"score,omitempty"`
	Message      string          `json:"message"`
}

type ValidationRequest struct {
	StudentId   string              `json:"studentId,omitempty"`
	Schedule    []ScheduleEntry     `json:"schedule" validate:"dive"`
	Constraints ScheduleConstraints `json:"constraints"`
}

type ValidationResponse struct {
	IsValid      bool       `json:"isValid"`
	Conflicts    []Conflict `json:"conflicts"`
	Warnings     []Warning  `json:"warnings"`
	TotalCredits int        `json:"totalCredits"`
	Suggestions  []string   `json:"suggestions"`
}
