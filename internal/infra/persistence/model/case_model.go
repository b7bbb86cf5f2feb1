package model

import (
	"time"

	"github.com/google/uuid"
)

// CaseModel mirrors the 'cases' table.
type CaseModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CNRNumber   string     `gorm:"column:cnr_number;type:varchar(32);uniqueIndex;not null"`
	Title       string     `gorm:"type:varchar(255);not null"`
	CaseType    string     `gorm:"type:varchar(32);not null"`
	Status      string     `gorm:"type:varchar(16);not null"`
	Petitioner  string     `gorm:"type:varchar(255);not null"`
	Respondent  string     `gorm:"type:varchar(255);not null"`
	JudgeID     *uuid.UUID `gorm:"type:uuid;index"`
	CourtName   string     `gorm:"type:varchar(255)"`
	Description string     `gorm:"type:text"`
	CreatedBy   uuid.UUID  `gorm:"type:uuid;not null"`
	CreatedAt   time.Time  `gorm:"index"`
	UpdatedAt   time.Time
}

// TableName explicitly sets the table name for GORM.
func (CaseModel) TableName() string {
	return "cases"
}

// CaseParticipantModel mirrors the 'case_participants' table.
type CaseParticipantModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	CaseID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_case_participant"`
	IdentityID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_case_participant"`
	PartyType  string    `gorm:"type:varchar(32);not null"`
	CreatedAt  time.Time
}

// TableName explicitly sets the table name for GORM.
func (CaseParticipantModel) TableName() string {
	return "case_participants"
}

// ParticipantRow is the roster projection joined with profiles.
type ParticipantRow struct {
	CaseParticipantModel
	FullName *string
}

// HearingModel mirrors the 'hearings' table.
type HearingModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	CaseID      uuid.UUID `gorm:"type:uuid;index;not null"`
	HearingDate time.Time `gorm:"not null"`
	Status      string    `gorm:"type:varchar(16);not null"`
	Location    string    `gorm:"type:varchar(255)"`
	MeetingLink string    `gorm:"type:varchar(512)"`
	CreatedAt   time.Time
}

// TableName explicitly sets the table name for GORM.
func (HearingModel) TableName() string {
	return "hearings"
}

// CommunicationModel mirrors the 'communications' table.
type CommunicationModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	CaseID         uuid.UUID `gorm:"type:uuid;index;not null"`
	SenderID       uuid.UUID `gorm:"type:uuid;not null"`
	RecipientParty string    `gorm:"type:varchar(64)"`
	Message        string    `gorm:"type:text;not null"`
	IsPrivate      bool      `gorm:"not null;default:false"`
	SentAt         time.Time `gorm:"not null"`
}

// TableName explicitly sets the table name for GORM.
func (CommunicationModel) TableName() string {
	return "communications"
}
