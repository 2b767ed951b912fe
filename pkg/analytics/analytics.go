// Package analytics reports user actions to Google Analytics 4 through the
// Measurement Protocol.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

var MeasurementURL = "https://www.google-analytics.com/mp/collect"

// Event is a GA event in the category/action/label shape.
type Event struct {
	Category string `json:"category"`
	Action   string `json:"action"`
	Label    string `json:"label"`
}

// Tracker sends analytics events.
type Tracker interface {
	Track(ctx context.Context, ev Event) error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Track(context.Context, Event) error { return nil }

// GA4 posts events to the Measurement Protocol endpoint.
type GA4 struct {
	measurementID string
	apiSecret     string
	clientID      string
	client        *http.Client
}

// NewGA4 creates a GA4 tracker. clientID identifies this installation.
func NewGA4(measurementID, apiSecret, clientID string) *GA4 {
	if clientID == "" {
		clientID = "dndstake"
	}
	return &GA4{
		measurementID: measurementID,
		apiSecret:     apiSecret,
		clientID:      clientID,
		client:        &http.Client{Timeout: 10 * time.Second},
	}
}

type mpEvent struct {
	Name   string            `json:"name"`
	Params map[string]string `json:"params"`
}

type mpPayload struct {
	ClientID string    `json:"client_id"`
	Events   []mpEvent `json:"events"`
}

func (g *GA4) Track(ctx context.Context, ev Event) error {
	body, err := json.Marshal(mpPayload{
		ClientID: g.clientID,
		Events: []mpEvent{{
			Name: ev.Category,
			Params: map[string]string{
				"event_category": ev.Category,
				"event_action":   ev.Action,
				"event_label":    ev.Label,
			},
		}},
	})
	if err != nil {
		return err
	}

	q := url.Values{"measurement_id": {g.measurementID}, "api_secret": {g.apiSecret}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, MeasurementURL+"?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("analytics: unexpected status %d", resp.StatusCode)
	}
	return nil
}
