package model

import "fmt"

type CommitmentType string

const (
	Practice CommitmentType = "PRACTICE"
	Game     CommitmentType = "GAME"
	Travel   CommitmentType = "TRAVEL"
	Meeting  CommitmentType = "MEETING"
)

// AthleticCommitment is a recurring block on the athletic calendar. Only mandatory commitments are hard constraints.
type AthleticCommitment struct {
	Id        string         `json:"id,omitempty"`
	Type      CommitmentType `json:"type" validate:"required,oneof=PRACTICE GAME TRAVEL MEETING"`
	Title     string         `json:"title,omitempty"`
	TimeSlots []TimeSlot     `json:"timeSlots" validate:"dive"`
	Mandatory bool           `json:"mandatory"`
	Priority  int            `json:"priority,omitempty" validate:"omitempty,min=1,max=5"` // 1 (low) to 5 (must not be missed)
}

func (commitment AthleticCommitment) Label() string {
	if commitment.Title == "" {
		return string(commitment.Type)
	}
	return fmt.Sprintf("%v (%v)", commitment.Title, commitment.Type)
}
