package qrcode

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"lexcourt/internal/domain/entity"
	"lexcourt/internal/domain/service"
	"lexcourt/internal/errors"
)

const payloadTypeHearing = "hearing_join"

type qrcodeService struct {
	size  int
	level qrcode.RecoveryLevel
}

// HearingPayload is the JSON content of a hearing join code.
type HearingPayload struct {
	Type        string `json:"type"`
	HearingID   string `json:"hearing_id"`
	CaseID      string `json:"case_id"`
	MeetingLink string `json:"meeting_link"`
}

// NewQRCodeService creates a QR code service. level accepts L/M/Q/H or
// low/medium/high/highest; anything else means medium.
func NewQRCodeService(size int, level string) service.QRCodeService {
	return &qrcodeService{
		size:  size,
		level: parseRecoveryLevel(level),
	}
}

func parseRecoveryLevel(level string) qrcode.RecoveryLevel {
	switch strings.ToLower(level) {
	case "l", "low":
		return qrcode.Low
	case "q", "high":
		return qrcode.High
	case "h", "highest":
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}

// GenerateHearingQR encodes the hearing's meeting link as a PNG.
func (s *qrcodeService) GenerateHearingQR(hearing *entity.Hearing) ([]byte, error) {
	if hearing.MeetingLink == "" {
		return nil, errors.New("hearing has no meeting link")
	}

	payload, err := json.Marshal(HearingPayload{
		Type:        payloadTypeHearing,
		HearingID:   hearing.ID.String(),
		CaseID:      hearing.CaseID.String(),
		MeetingLink: hearing.MeetingLink,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal QR payload")
	}

	code, err := qrcode.New(string(payload), s.level)
	if err != nil {
		return nil, errors.Wrap(err, "create QR code")
	}

	png, err := code.PNG(s.size)
	if err != nil {
		return nil, errors.Wrap(err, "render QR PNG")
	}

	return png, nil
}

// ParseHearingQR returns the hearing ID carried by scanned QR content.
func (s *qrcodeService) ParseHearingQR(qrData string) (uuid.UUID, error) {
	var payload HearingPayload
	if err := json.Unmarshal([]byte(qrData), &payload); err != nil {
		return uuid.Nil, errors.Wrap(err, "unmarshal QR payload")
	}

	if payload.Type != payloadTypeHearing {
		return uuid.Nil, errors.Errorf("invalid QR code type: %s", payload.Type)
	}

	hearingID, err := uuid.Parse(payload.HearingID)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "parse hearing ID")
	}

	return hearingID, nil
}
