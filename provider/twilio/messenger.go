// Package twilio implements the escrow messenger on the Twilio SMS and
// WhatsApp messaging API.
package twilio

import (
	"context"

	twiliosdk "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/havencare/escrow/provider"
)

// Messenger implements provider.Messenger on Twilio.
type Messenger struct {
	client *twiliosdk.RestClient
	from   string
}

var _ provider.Messenger = (*Messenger)(nil)

// New creates a Twilio messenger. The from number must be a Twilio-owned
// sender; prefix both sides with "whatsapp:" to send over WhatsApp.
func New(accountSID, authToken, from string) *Messenger {
	client := twiliosdk.NewRestClientWithParams(twiliosdk.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Messenger{client: client, from: from}
}

// Send delivers a single message to the given number.
func (m *Messenger) Send(ctx context.Context, to, body string) error {
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(m.from)
	params.SetBody(body)

	if _, err := m.client.Api.CreateMessage(params); err != nil {
		return &provider.MessageError{To: to, Err: err}
	}
	return nil
}
