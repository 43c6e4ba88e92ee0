package client

import (
	"context"
	"net/http"
	"sort"
	"time"

	appErrors "github.com/moehefner/streb/internal/errors"
	"github.com/moehefner/streb/internal/model"
)

const resendURL = "https://api.resend.com/emails"

// Resend sends e-mail through the Resend API.
type Resend struct {
	APIKey  string
	BaseURL string
	HTTP    HTTPClient
	Backoff Backoff
}

func NewResend(apiKey string, httpc HTTPClient) *Resend {
	return &Resend{APIKey: apiKey, BaseURL: resendURL, HTTP: httpc, Backoff: NewBackoff(500*time.Millisecond, 2)}
}

func (r *Resend) Ready() error {
	if r.APIKey == "" {
		return appErrors.NewConfigError("RESEND_API_KEY")
	}
	return nil
}

type resendTag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type resendEmail struct {
	From    string      `json:"from"`
	To      []string    `json:"to"`
	Subject string      `json:"subject"`
	Text    string      `json:"text"`
	Tags    []resendTag `json:"tags,omitempty"`
}

// Send is safe to retry: the idempotency key makes Resend drop duplicates.
func (r *Resend) Send(ctx context.Context, msg model.OutboundEmail) (model.SendReceipt, error) {
	if err := r.Ready(); err != nil {
		return model.SendReceipt{}, err
	}

	tags := make([]resendTag, 0, len(msg.Tags))
	for k, v := range msg.Tags {
		tags = append(tags, resendTag{Name: k, Value: v})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })

	header := http.Header{}
	header.Set("Authorization", "Bearer "+r.APIKey)
	if msg.IdempotencyKey != "" {
		header.Set("Idempotency-Key", msg.IdempotencyKey)
	}

	var receipt model.SendReceipt
	err := r.Backoff.Do(ctx, func() error {
		return doJSON(ctx, r.HTTP, http.MethodPost, r.BaseURL, header, resendEmail{
			From:    msg.From,
			To:      []string{msg.To},
			Subject: msg.Subject,
			Text:    msg.Body,
			Tags:    tags,
		}, &receipt)
	})
	return receipt, err
}
