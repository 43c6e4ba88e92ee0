package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	appErrors "github.com/moehefner/streb/internal/errors"
	"github.com/moehefner/streb/internal/model"
)

const (
	anthropicURL     = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
)

// Anthropic generates outreach copy with the Messages API.
type Anthropic struct {
	APIKey    string
	Model     string
	MaxTokens int
	BaseURL   string
	HTTP      HTTPClient
	Backoff   Backoff
}

func NewAnthropic(apiKey, modelName string, httpc HTTPClient) *Anthropic {
	return &Anthropic{
		APIKey:    apiKey,
		Model:     modelName,
		MaxTokens: 600,
		BaseURL:   anthropicURL,
		HTTP:      httpc,
		Backoff:   NewBackoff(time.Second, 1),
	}
}

func (a *Anthropic) Ready() error {
	if a.APIKey == "" {
		return appErrors.NewConfigError("ANTHROPIC_API_KEY")
	}
	return nil
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (a *Anthropic) GenerateOutreachBody(ctx context.Context, c model.CampaignContext, lead model.Lead) (string, error) {
	if err := a.Ready(); err != nil {
		return "", err
	}

	header := http.Header{}
	header.Set("x-api-key", a.APIKey)
	header.Set("anthropic-version", anthropicVersion)

	var resp anthropicResponse
	err := a.Backoff.Do(ctx, func() error {
		resp = anthropicResponse{}
		return doJSON(ctx, a.HTTP, http.MethodPost, a.BaseURL, header, anthropicRequest{
			Model:     a.Model,
			MaxTokens: a.MaxTokens,
			Messages:  []anthropicMessage{{Role: "user", Content: outreachPrompt(c, lead)}},
		}, &resp)
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, part := range resp.Content {
		if part.Type == "text" {
			b.WriteString(part.Text)
		}
	}
	body := strings.TrimSpace(b.String())
	if body == "" {
		return "", fmt.Errorf("empty completion")
	}
	return body, nil
}

func outreachPrompt(c model.CampaignContext, lead model.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a short, plain-text cold e-mail (under 120 words, no subject line) introducing %s.\n", c.AppName)
	if c.AppDescription != "" {
		fmt.Fprintf(&b, "Product: %s\n", c.AppDescription)
	}
	fmt.Fprintf(&b, "Recipient: %s", lead.Name)
	if lead.Title != "" {
		fmt.Fprintf(&b, ", %s", lead.Title)
	}
	if lead.Company != "" {
		fmt.Fprintf(&b, " at %s", lead.Company)
	}
	b.WriteString("\n")
	if c.SenderName != "" {
		fmt.Fprintf(&b, "Sign off as %s.\n", c.SenderName)
	}
	b.WriteString("Reply with the e-mail body only.")
	return b.String()
}
