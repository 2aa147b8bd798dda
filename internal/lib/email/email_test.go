package email

import (
	"errors"
	"testing"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []*resend.SendEmailRequest
	err  error
}

func (f *fakeSender) Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, params)
	return &resend.SendEmailResponse{Id: "email-1"}, nil
}

func newTestClient(sender Sender) *Client {
	logger := zerolog.Nop()
	return NewClientWithSender(sender, "Sitterbook <test@example.com>", &logger)
}

func TestRender_PreviewData(t *testing.T) {
	for name, data := range PreviewData {
		t.Run(string(name), func(t *testing.T) {
			html, err := Render(name, data)
			require.NoError(t, err)
			for _, v := range data {
				assert.Contains(t, html, v)
			}
		})
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, err := Render("missing", nil)
	assert.Error(t, err)
}

func TestSendLikeNotification(t *testing.T) {
	sender := &fakeSender{}
	client := newTestClient(sender)

	require.NoError(t, client.SendLikeNotification("owner@example.com", "sitter profile", 4))

	require.Len(t, sender.sent, 1)
	req := sender.sent[0]
	assert.Equal(t, "Sitterbook <test@example.com>", req.From)
	assert.Equal(t, []string{"owner@example.com"}, req.To)
	assert.Equal(t, "Someone liked your sitter profile on Sitterbook", req.Subject)
	assert.Contains(t, req.Html, "It now has 4 like(s).")
}

func TestSendEmail_ProviderError(t *testing.T) {
	client := newTestClient(&fakeSender{err: errors.New("rate limited")})

	err := client.SendLikeNotification("owner@example.com", "babysitting job", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}
