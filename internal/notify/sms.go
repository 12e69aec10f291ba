package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/iliyamo/advocate-booking/internal/model"
)

// maxSMSBody keeps a message within a few SMS segments.
const maxSMSBody = 480

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// SMS sends notifications as text messages through Twilio.
type SMS struct {
	From string
	api  messageCreator
}

// NewSMS builds a Twilio-backed sender.
func NewSMS(accountSID, authToken, from string) *SMS {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &SMS{From: from, api: client.Api}
}

func (s *SMS) Name() string { return "sms" }

// Deliver texts the contact's phone.  Contacts without one are skipped.
func (s *SMS) Deliver(_ context.Context, to model.Contact, title, message string) error {
	if to.Phone == nil || *to.Phone == "" {
		return nil
	}
	body := title + ": " + message
	if len(body) > maxSMSBody {
		body = body[:maxSMSBody-3] + "..."
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(*to.Phone)
	params.SetFrom(s.From)
	params.SetBody(body)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	if resp != nil && resp.Sid != nil {
		log.Printf("notify: sms to user %d sent, SID: %s", to.UserID, *resp.Sid)
	}
	return nil
}
