// internal/service/template_service.go
package service

import (
	"strings"

	"github.com/moehefner/streb/internal/model"
)

// DefaultOutreachSubject is used when the campaign has no subject template.
const DefaultOutreachSubject = "Quick question for {company}"

func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}

// RenderSubject fills the campaign's subject template for lead. Empty lead
// fields get neutral wording instead of a blank.
func RenderSubject(c *model.Campaign, lead model.Lead) string {
	template := strings.TrimSpace(c.OutreachSubject)
	if template == "" {
		template = DefaultOutreachSubject
	}
	data := map[string]string{
		"first_name": fallback(lead.FirstName(), "there"),
		"name":       fallback(lead.Name, "there"),
		"company":    fallback(lead.Company, "your team"),
		"title":      fallback(lead.Title, "your role"),
		"app_name":   c.AppName,
	}
	return strings.TrimSpace(RenderTemplate(template, data))
}

func fallback(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
