package model

import (
	"time"

	"github.com/google/uuid"
)

// ProfileModel mirrors the 'profiles' table. identity_id is indexed but not
// unique; readers detect duplicates.
type ProfileModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	IdentityID       uuid.UUID `gorm:"type:uuid;index;not null"`
	UserType         string    `gorm:"type:varchar(16);not null"`
	FullName         string    `gorm:"type:varchar(200);not null"`
	EnrollmentNumber *string   `gorm:"type:varchar(64)"`
	CourtID          *string   `gorm:"type:varchar(64)"`
	Phone            string    `gorm:"type:varchar(32)"`
	ContactEmail     string    `gorm:"type:varchar(255)"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName explicitly sets the table name for GORM.
func (ProfileModel) TableName() string {
	return "profiles"
}
