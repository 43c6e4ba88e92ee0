package client

import (
	"context"
	"net/http"
	"strings"
	"time"

	appErrors "github.com/moehefner/streb/internal/errors"
	"github.com/moehefner/streb/internal/model"
)

const apolloURL = "https://api.apollo.io/v1/mixed_people/search"

// Apollo discovers leads through the Apollo people search.
type Apollo struct {
	APIKey  string
	BaseURL string
	HTTP    HTTPClient
	Backoff Backoff
}

func NewApollo(apiKey string, httpc HTTPClient) *Apollo {
	return &Apollo{APIKey: apiKey, BaseURL: apolloURL, HTTP: httpc, Backoff: NewBackoff(500*time.Millisecond, 2)}
}

func (a *Apollo) Ready() error {
	if a.APIKey == "" {
		return appErrors.NewConfigError("APOLLO_API_KEY")
	}
	return nil
}

type apolloSearch struct {
	Keywords string `json:"q_keywords"`
	Page     int    `json:"page"`
	PerPage  int    `json:"per_page"`
}

type apolloPerson struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Title        string `json:"title"`
	LinkedInURL  string `json:"linkedin_url"`
	Organization *struct {
		Name string `json:"name"`
	} `json:"organization"`
}

type apolloResponse struct {
	People []apolloPerson `json:"people"`
}

const (
	apolloPageSize = 100
	apolloMaxPages = 3
)

// FindLeads keeps Apollo's ordering and drops people without a usable
// address. Results start at q.Offset so repeated runs move down the list
// instead of returning the same people.
func (a *Apollo) FindLeads(ctx context.Context, q model.LeadQuery) ([]model.Lead, error) {
	if err := a.Ready(); err != nil {
		return nil, err
	}
	if q.Limit <= 0 {
		return []model.Lead{}, nil
	}

	header := http.Header{}
	header.Set("X-Api-Key", a.APIKey)
	header.Set("Cache-Control", "no-cache")

	offset := max(q.Offset, 0)
	page := offset/apolloPageSize + 1
	skip := offset % apolloPageSize

	leads := make([]model.Lead, 0, q.Limit)
	for i := 0; i < apolloMaxPages && len(leads) < q.Limit; i, page, skip = i+1, page+1, 0 {
		var resp apolloResponse
		err := a.Backoff.Do(ctx, func() error {
			resp = apolloResponse{}
			return doJSON(ctx, a.HTTP, http.MethodPost, a.BaseURL, header, apolloSearch{
				Keywords: q.Keyword,
				Page:     page,
				PerPage:  apolloPageSize,
			}, &resp)
		})
		if err != nil {
			return nil, err
		}
		if skip >= len(resp.People) {
			break
		}

		for _, p := range resp.People[skip:] {
			if lead, ok := apolloLead(p); ok {
				leads = append(leads, lead)
				if len(leads) == q.Limit {
					break
				}
			}
		}
		if len(resp.People) < apolloPageSize {
			break
		}
	}
	return leads, nil
}

func apolloLead(p apolloPerson) (model.Lead, bool) {
	email := strings.TrimSpace(p.Email)
	if email == "" || !strings.Contains(email, "@") || strings.HasPrefix(email, "email_not_unlocked") {
		return model.Lead{}, false
	}
	lead := model.Lead{
		Name:        p.Name,
		Email:       email,
		Title:       p.Title,
		LinkedInURL: p.LinkedInURL,
	}
	if p.Organization != nil {
		lead.Company = p.Organization.Name
	}
	return lead, true
}
