package entity

import (
	"time"

	"github.com/google/uuid"
)

// Communication is a message posted on a case.
type Communication struct {
	ID             uuid.UUID `json:"id"`
	CaseID         uuid.UUID `json:"case_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	RecipientParty string    `json:"recipient_party"` // Free-form addressee, e.g. "petitioner".
	Message        string    `json:"message"`
	Private        bool      `json:"private"` // Visible to counsel and judge participants only.
	SentAt         time.Time `json:"sent_at"`
}
