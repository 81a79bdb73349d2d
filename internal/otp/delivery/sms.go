package delivery

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	dErrors "tripmate/pkg/domain-errors"
)

// MessageCreator is the part of the Twilio REST API the SMS sender uses.
type MessageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// SMSSender delivers codes as SMS through Twilio.
type SMSSender struct {
	api  MessageCreator
	from string
}

// NewTwilio builds an SMS sender from account credentials.
func NewTwilio(accountSID, authToken, from string) (*SMSSender, error) {
	if accountSID == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("twilio: account sid, auth token and from number are required")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return NewSMS(client.Api, from), nil
}

func NewSMS(api MessageCreator, from string) *SMSSender {
	return &SMSSender{api: api, from: from}
}

// Send ignores ctx; the Twilio client does not accept one.
func (s *SMSSender) Send(_ context.Context, msg Message) error {
	if msg.Phone == "" {
		return dErrors.New(dErrors.CodeValidation, "phone is required for sms delivery")
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(msg.Phone)
	params.SetFrom(s.from)
	params.SetBody(msg.Text)

	if _, err := s.api.CreateMessage(params); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "twilio create message failed")
	}
	return nil
}
