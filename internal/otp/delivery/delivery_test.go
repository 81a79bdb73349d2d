package delivery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	dErrors "tripmate/pkg/domain-errors"
)

func TestCodeText(t *testing.T) {
	assert.Equal(t, "Your TripMate OTP is: 012345", CodeText("012345"))
}

func TestTelegramSender_Send(t *testing.T) {
	var chat, text string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		chat, text = r.FormValue("chat_id"), r.FormValue("text")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":1735689600,"chat":{"id":42,"type":"private"},"text":"ok"}}`))
	}))
	defer srv.Close()

	s, err := NewTelegram(srv.URL, "TOKEN", nil)
	require.NoError(t, err)

	err = s.Send(context.Background(), Message{ChatID: "42", Text: CodeText("123456")})
	require.NoError(t, err)
	assert.Equal(t, "42", chat)
	assert.Equal(t, "Your TripMate OTP is: 123456", text)
}

func TestChatID(t *testing.T) {
	assert.Equal(t, int64(-1001234567890), chatID("-1001234567890"))
	assert.Equal(t, "@tripmate_ops", chatID("@tripmate_ops"))
}

func TestTelegramSender_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	s, err := NewTelegram(srv.URL, "TOKEN", nil)
	require.NoError(t, err)

	err = s.Send(context.Background(), Message{ChatID: "42", Text: "x"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	assert.Contains(t, err.Error(), "chat not found")

	err = s.Send(context.Background(), Message{Text: "x"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = NewTelegram(srv.URL, "", nil)
	assert.Error(t, err)
}

func TestTelegramSender_UnreachableHidesToken(t *testing.T) {
	s, err := NewTelegram("http://127.0.0.1:1", "SECRET", nil)
	require.NoError(t, err)

	err = s.Send(context.Background(), Message{ChatID: "42", Text: "x"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	assert.NotContains(t, err.Error(), "SECRET")
}

type fakeTwilio struct {
	params *twilioApi.CreateMessageParams
	err    error
}

func (f *fakeTwilio) CreateMessage(p *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = p
	return &twilioApi.ApiV2010Message{}, f.err
}

func TestSMSSender_Send(t *testing.T) {
	api := &fakeTwilio{}
	s := NewSMS(api, "+15550001111")

	require.NoError(t, s.Send(context.Background(), Message{Phone: "+919876543210", Text: "hi"}))
	require.NotNil(t, api.params)
	assert.Equal(t, "+919876543210", *api.params.To)
	assert.Equal(t, "+15550001111", *api.params.From)
	assert.Equal(t, "hi", *api.params.Body)

	api.err = errors.New("20003 authenticate")
	err := s.Send(context.Background(), Message{Phone: "+919876543210", Text: "hi"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))

	_, err = NewTwilio("", "", "")
	assert.Error(t, err)
}
