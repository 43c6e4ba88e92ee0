package client

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

const stripeURL = "https://api.stripe.com/v1/subscriptions/"

// Stripe reads subscription billing periods.
type Stripe struct {
	SecretKey string
	BaseURL   string
	HTTP      HTTPClient
	Backoff   Backoff
}

func NewStripe(secretKey string, httpc HTTPClient) *Stripe {
	return &Stripe{SecretKey: secretKey, BaseURL: stripeURL, HTTP: httpc, Backoff: NewBackoff(200*time.Millisecond, 2)}
}

type stripeSubscription struct {
	CurrentPeriodEnd int64 `json:"current_period_end"`
	Items            struct {
		Data []struct {
			CurrentPeriodEnd int64 `json:"current_period_end"`
		} `json:"data"`
	} `json:"items"`
}

// CurrentPeriodEnd reads the renewal date. Newer API versions report it per
// subscription item, so the item value is used when the top-level one is
// missing.
func (s *Stripe) CurrentPeriodEnd(ctx context.Context, subscriptionID string) (time.Time, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.SecretKey)

	var sub stripeSubscription
	err := s.Backoff.Do(ctx, func() error {
		sub = stripeSubscription{}
		return doJSON(ctx, s.HTTP, http.MethodGet, s.BaseURL+url.PathEscape(subscriptionID), header, nil, &sub)
	})
	if err != nil {
		return time.Time{}, err
	}

	end := sub.CurrentPeriodEnd
	if end == 0 && len(sub.Items.Data) > 0 {
		end = sub.Items.Data[0].CurrentPeriodEnd
	}
	if end == 0 {
		return time.Time{}, nil
	}
	return time.Unix(end, 0).UTC(), nil
}
