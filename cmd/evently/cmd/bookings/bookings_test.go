package bookings

import (
	"testing"

	"github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/evently/pkg/types"
)

func TestTicketPayload(t *testing.T) {
	reg := types.Registration{ID: 12, EventID: 3, UserID: 7}
	assert.Equal(t, "evently:booking:12:event:3:user:7", TicketPayload(reg))

	png, err := qrcode.Encode(TicketPayload(reg), qrcode.Medium, ticketSize)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}
