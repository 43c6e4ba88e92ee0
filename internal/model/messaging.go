package model

// CampaignContext is what the message generator knows about the campaign.
type CampaignContext struct {
	AppName        string `json:"app_name"`
	AppDescription string `json:"app_description"`
	TargetKeyword  string `json:"target_keyword"`
	SenderName     string `json:"sender_name"`
}

// OutboundEmail is a single message handed to the e-mail provider.
type OutboundEmail struct {
	From           string
	To             string
	Subject        string
	Body           string
	Tags           map[string]string
	IdempotencyKey string
}

// SendReceipt is the provider's acknowledgement of an accepted message.
type SendReceipt struct {
	MessageID string `json:"id"`
}

// ContentRequest asks the content pipeline to publish for one campaign.
type ContentRequest struct {
	UserID         string     `json:"user_id"`
	CampaignID     string     `json:"campaign_id"`
	Action         ActionKind `json:"action"`
	Platforms      []Platform `json:"platforms"`
	AppName        string     `json:"app_name"`
	AppDescription string     `json:"app_description"`
}

// ContentResult lists the platforms that accepted the content.
type ContentResult struct {
	Published []Platform `json:"published"`
	Errors    []string   `json:"errors,omitempty"`
}
