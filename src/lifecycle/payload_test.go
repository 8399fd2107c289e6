package lifecycle_test

import (
	"testing"
	"ticketflow/src/lifecycle"
	"ticketflow/src/models"
	"ticketflow/src/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestParseQRPayloadRoundTrip(t *testing.T) {
	ticket := &models.Ticket{
		ID:         uuid.New(),
		HolderName: "Ana Gomez",
		NationalID: "30123456",
		Quantity:   2,
		Tier:       types.TIER_VIP,
	}
	raw := lifecycle.EncodeQRPayload(ticket)
	assert.Equal(t, ticket.ID.String(), gjson.Get(raw, "ticketId").String())
	assert.Equal(t, "Ana Gomez", gjson.Get(raw, "name").String())

	id, err := lifecycle.ParseQRPayload(raw)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, id)
}

func TestParseQRPayloadRejectsGarbage(t *testing.T) {
	for name, raw := range map[string]string{
		"empty":        "",
		"not json":     "hello",
		"wrong shape":  `{"foo":"bar"}`,
		"bad uuid":     `{"ticketId":"not-a-uuid"}`,
		"numeric id":   `{"ticketId":12345}`,
		"array":        `[1,2,3]`,
		"half payload": `{"ticketId":`,
	} {
		_, err := lifecycle.ParseQRPayload(raw)
		assert.ErrorIs(t, err, lifecycle.ErrBadPayload, name)
	}
}
