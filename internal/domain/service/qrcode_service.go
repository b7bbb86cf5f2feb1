package service

import (
	"github.com/google/uuid"

	"lexcourt/internal/domain/entity"
)

// QRCodeService renders hearing join codes.
type QRCodeService interface {
	// GenerateHearingQR returns a PNG encoding the hearing's meeting link.
	GenerateHearingQR(hearing *entity.Hearing) ([]byte, error)

	// ParseHearingQR extracts the hearing ID from scanned QR content.
	ParseHearingQR(qrData string) (uuid.UUID, error)
}
