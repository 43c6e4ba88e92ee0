package client

import (
	"context"
	"net/http"

	appErrors "github.com/moehefner/streb/internal/errors"
	"github.com/moehefner/streb/internal/model"
)

// ContentWebhook forwards post and video jobs to the publishing pipeline.
type ContentWebhook struct {
	URL   string
	Token string
	HTTP  HTTPClient
}

func NewContentWebhook(url, token string, httpc HTTPClient) *ContentWebhook {
	return &ContentWebhook{URL: url, Token: token, HTTP: httpc}
}

func (w *ContentWebhook) Ready() error {
	if w.URL == "" {
		return appErrors.NewConfigError("CONTENT_WEBHOOK_URL")
	}
	return nil
}

// Publish is not retried; the pipeline may already have posted.
func (w *ContentWebhook) Publish(ctx context.Context, req model.ContentRequest) (*model.ContentResult, error) {
	if err := w.Ready(); err != nil {
		return nil, err
	}
	header := http.Header{}
	if w.Token != "" {
		header.Set("Authorization", "Bearer "+w.Token)
	}

	var result model.ContentResult
	if err := doJSON(ctx, w.HTTP, http.MethodPost, w.URL, header, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
