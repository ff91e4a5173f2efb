package meta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bantconfirm/whatsapp-platform/internal/config"
	"github.com/bantconfirm/whatsapp-platform/internal/metrics"
	"github.com/bantconfirm/whatsapp-platform/internal/models"
)

// Client calls the Meta WhatsApp Cloud API. Credentials are per tenant and
// passed with each call; the client itself holds only transport state.
// Single attempt, no retries.
type Client struct {
	baseURL string
	http    *http.Client
	metrics *metrics.Metrics
}

// NewClient creates a Meta Graph API client
func NewClient(cfg *config.MetaConfig, m *metrics.Metrics) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		metrics: m,
	}
}

// SendResult is Meta's acknowledgement of an outbound message
type SendResult struct {
	MessageID string `json:"message_id"`
}

type sendTextRequest struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

type sendTextResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendText sends a text message through the tenant's WhatsApp number
func (c *Client) SendText(ctx context.Context, cfg *models.MetaConfig, to, body string) (*SendResult, error) {
	payload := sendTextRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
	}
	payload.Text.Body = body

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, cfg.PhoneNumberID)

	var out sendTextResponse
	if err := c.post(ctx, "messages", url, cfg.AccessToken, payload, &out); err != nil {
		return nil, err
	}

	result := &SendResult{}
	if len(out.Messages) > 0 {
		result.MessageID = out.Messages[0].ID
	}
	return result, nil
}

type templateComponent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type submitTemplateRequest struct {
	Name       string              `json:"name"`
	Category   string              `json:"category"`
	Language   string              `json:"language"`
	Components []templateComponent `json:"components"`
}

type submitTemplateResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// SubmitTemplate submits a message template for Meta review
func (c *Client) SubmitTemplate(ctx context.Context, cfg *models.MetaConfig, tpl *models.MessageTemplate) (string, string, error) {
	payload := submitTemplateRequest{
		Name:     tpl.Name,
		Category: tpl.Category,
		Language: tpl.Language,
	}

	if tpl.HeaderType != "" {
		payload.Components = append(payload.Components, templateComponent{Type: "HEADER", Text: tpl.HeaderContent})
	}
	payload.Components = append(payload.Components, templateComponent{Type: "BODY", Text: tpl.BodyText})
	if tpl.FooterText != "" {
		payload.Components = append(payload.Components, templateComponent{Type: "FOOTER", Text: tpl.FooterText})
	}

	url := fmt.Sprintf("%s/%s/message_templates", c.baseURL, cfg.BusinessAccountID)

	var out submitTemplateResponse
	if err := c.post(ctx, "message_templates", url, cfg.AccessToken, payload, &out); err != nil {
		return "", "", err
	}

	status := out.Status
	if status == "" {
		status = "PENDING"
	}
	return out.ID, status, nil
}

func (c *Client) post(ctx context.Context, endpoint, url, accessToken string, payload, out interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(endpoint, "error", start)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		c.observe(endpoint, fmt.Sprintf("%d", resp.StatusCode), start)
		return fmt.Errorf("meta %s status %d", endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.observe(endpoint, "decode_error", start)
		return err
	}

	c.observe(endpoint, "ok", start)
	return nil
}

func (c *Client) observe(endpoint, status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.MetaRequests.WithLabelValues(endpoint, status).Inc()
	c.metrics.MetaLatency.WithLabelValues(endpoint, status).Observe(time.Since(start).Seconds())
}
