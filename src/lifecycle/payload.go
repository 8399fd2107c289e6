package lifecycle

import (
	"encoding/json"
	"errors"
	"ticketflow/src/models"

	"github.com/google/uuid"
)

// ErrBadPayload marks a QR payload that failed the schema check. The
// payload is untrusted input scanned at the door; anything that does not
// parse cleanly is rejected, never guessed at.
var ErrBadPayload = errors.New("malformed ticket payload")

// QRPayload is the JSON document encoded into the e-ticket QR code.
type QRPayload struct {
	TicketID   string `json:"ticketId"`
	Name       string `json:"name,omitempty"`
	NationalID string `json:"nationalId,omitempty"`
	Quantity   uint   `json:"quantity,omitempty"`
}

// ParseQRPayload extracts the ticket identity from a scanned payload.
// Unknown extra fields are ignored, but the document must be valid JSON
// and carry a well-formed ticket id.
func ParseQRPayload(raw string) (uuid.UUID, error) {
	var payload QRPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return uuid.Nil, ErrBadPayload
	}
	id, err := uuid.Parse(payload.TicketID)
	if err != nil {
		return uuid.Nil, ErrBadPayload
	}
	return id, nil
}

// EncodeQRPayload renders the payload embedded in confirmation messages.
func EncodeQRPayload(ticket *models.Ticket) string {
	payload := QRPayload{
		TicketID:   ticket.ID.String(),
		Name:       ticket.HolderName,
		NationalID: ticket.NationalID,
		Quantity:   ticket.Quantity,
	}
	raw, _ := json.Marshal(&payload)
	return string(raw)
}
