package model

import (
	"fmt"
	"strings"
)

// Profile selects the persisted key names and limits of one product variant
type Profile struct {
	Name          string
	TemplatesKey  string
	LogsKey       string
	MaxLogs       int
	DefaultMethod string
	SendAction    string
	TemplateField string
}

var (
	// RequestProfile is the "Request Sender" variant
	RequestProfile = Profile{
		Name:          "request",
		TemplatesKey:  "requests",
		LogsKey:       "logs",
		MaxLogs:       100,
		DefaultMethod: "POST",
		SendAction:    "send_request",
		TemplateField: "request",
	}

	// WebhookProfile is the "Webhook Sender" variant
	WebhookProfile = Profile{
		Name:          "webhook",
		TemplatesKey:  "webhooks",
		LogsKey:       "requestLogs",
		MaxLogs:       50,
		DefaultMethod: "POST",
		SendAction:    "send_webhook",
		TemplateField: "webhook",
	}
)

// LanguageKey is the persisted locale preference key
const LanguageKey = "language"

// ProfileByName returns the profile for a variant name
func ProfileByName(name string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "request", "requests":
		return RequestProfile, nil
	case "webhook", "webhooks":
		return WebhookProfile, nil
	}
	return Profile{}, fmt.Errorf("unknown variant %q (expected request or webhook)", name)
}
