package sentry

import (
	"testing"

	"github.com/getsentry/sentry-go"
)

func TestScrubEvent_RedactsSensitiveHeaders(t *testing.T) {
	event := &sentry.Event{
		Request: &sentry.Request{
			Headers: map[string]string{
				"Authorization": "Bearer secret-token",
				"Cookie":        "session=abc123",
				"Set-Cookie":    "session=abc123; HttpOnly",
				"Content-Type":  "application/json",
			},
		},
	}

	result := ScrubEvent(event, nil)

	if result.Request.Headers["Authorization"] != "[Filtered]" {
		t.Errorf("expected Authorization to be [Filtered], got %s", result.Request.Headers["Authorization"])
	}
	if result.Request.Headers["Cookie"] != "[Filtered]" {
		t.Errorf("expected Cookie to be [Filtered], got %s", result.Request.Headers["Cookie"])
	}
	if result.Request.Headers["Set-Cookie"] != "[Filtered]" {
		t.Errorf("expected Set-Cookie to be [Filtered], got %s", result.Request.Headers["Set-Cookie"])
	}
	if result.Request.Headers["Content-Type"] != "application/json" {
		t.Errorf("expected Content-Type to be preserved, got %s", result.Request.Headers["Content-Type"])
	}
}

func TestScrubEvent_StripsRequestBodyAndQuery(t *testing.T) {
	event := &sentry.Event{
		Request: &sentry.Request{
			Data:        `{"book":{"title":"The Shining","description":"..."}}`,
			QueryString: "key=secret-api-key",
		},
	}

	result := ScrubEvent(event, nil)

	if result.Request.Data != "" {
		t.Errorf("expected request body to be stripped, got %s", result.Request.Data)
	}
	if result.Request.QueryString != "" {
		t.Errorf("expected query string to be stripped, got %s", result.Request.QueryString)
	}
}

func TestScrubEvent_ScrubsSensitiveTags(t *testing.T) {
	event := &sentry.Event{
		Tags: map[string]string{
			"environment": "production",
			"token":       "secret-value",
			"apiKey":      "AIza-not-real",
		},
	}

	result := ScrubEvent(event, nil)

	if result.Tags["environment"] != "production" {
		t.Errorf("expected environment tag to be preserved, got %s", result.Tags["environment"])
	}
	if result.Tags["token"] != "[Filtered]" {
		t.Errorf("expected token tag to be [Filtered], got %s", result.Tags["token"])
	}
	if result.Tags["apiKey"] != "[Filtered]" {
		t.Errorf("expected apiKey tag to be [Filtered], got %s", result.Tags["apiKey"])
	}
}

func TestScrubEvent_ScrubsBreadcrumbData(t *testing.T) {
	event := &sentry.Event{
		Breadcrumbs: []*sentry.Breadcrumb{
			{
				Data: map[string]interface{}{
					"url":          "/api/music/start",
					"geminiApiKey": "AIza-not-real",
				},
			},
			{
				Data: map[string]interface{}{
					"method": "POST",
					"dsn":    "https://public@sentry.example/1",
				},
			},
		},
	}

	result := ScrubEvent(event, nil)

	if result.Breadcrumbs[0].Data["url"] != "/api/music/start" {
		t.Errorf("expected url breadcrumb to be preserved, got %v", result.Breadcrumbs[0].Data["url"])
	}
	if result.Breadcrumbs[0].Data["geminiApiKey"] != "[Filtered]" {
		t.Errorf("expected geminiApiKey breadcrumb to be [Filtered], got %v", result.Breadcrumbs[0].Data["geminiApiKey"])
	}
	if result.Breadcrumbs[1].Data["dsn"] != "[Filtered]" {
		t.Errorf("expected dsn breadcrumb to be [Filtered], got %v", result.Breadcrumbs[1].Data["dsn"])
	}
}

func TestScrubEvent_HandlesNilRequest(t *testing.T) {
	event := &sentry.Event{
		Tags: map[string]string{"secret": "value"},
	}

	result := ScrubEvent(event, nil)

	if result.Tags["secret"] != "[Filtered]" {
		t.Errorf("expected secret tag to be [Filtered], got %s", result.Tags["secret"])
	}
}

func TestScrubEvent_HandlesEmptyEvent(t *testing.T) {
	event := &sentry.Event{}

	result := ScrubEvent(event, nil)

	if result == nil {
		t.Error("expected non-nil event")
	}
}

func TestScrubTransaction_AppliesSameScrubbing(t *testing.T) {
	event := &sentry.Event{
		Request: &sentry.Request{
			Headers: map[string]string{
				"Authorization": "Bearer token",
			},
			Data: `{"secret":"value"}`,
		},
	}

	result := ScrubTransaction(event, nil)

	if result.Request.Headers["Authorization"] != "[Filtered]" {
		t.Errorf("expected Authorization to be [Filtered], got %s", result.Request.Headers["Authorization"])
	}
	if result.Request.Data != "" {
		t.Errorf("expected request body to be stripped, got %s", result.Request.Data)
	}
}
