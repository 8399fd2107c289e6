package notify_test

import (
	"strings"
	"testing"
	"ticketflow/src/models"
	"ticketflow/src/notify"
	"ticketflow/src/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	for input, want := range map[string]string{
		"5491155550000":   "5491155550000",
		"541155550000":    "5491155550000",
		"91155550000":     "5491155550000",
		"1155550000":      "5491155550000",
		"11 5555-0000":    "5491155550000",
		"+54 9 11 5555-0000": "5491155550000",
		"":                "",
		"--":              "",
	} {
		assert.Equal(t, want, notify.NormalizePhone(input), input)
	}
}

func TestBuildWhatsAppLink(t *testing.T) {
	ticket := &models.Ticket{
		ID:         uuid.New(),
		HolderName: "Ana Gomez",
		Phone:      "11 5555-0000",
		NationalID: "30123456",
		Quantity:   2,
		Tier:       types.TIER_VIP,
		Total:      decimal.NewFromInt(77000),
	}
	link := notify.BuildWhatsAppLink(ticket)
	assert.True(t, strings.HasPrefix(link, "https://wa.me/5491155550000?text="), link)
	assert.Contains(t, link, "Ana+Gomez")
	assert.Contains(t, link, ticket.ID.String())
	assert.NotContains(t, link, " ")
}

func TestBuildWhatsAppLinkNoPhone(t *testing.T) {
	assert.Empty(t, notify.BuildWhatsAppLink(&models.Ticket{Phone: "no digits here"}))
}
