package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/bantconfirm/whatsapp-platform/internal/config"
)

// InboundMessage is published for every WhatsApp message ingested through
// the Meta webhook, so downstream consumers (routing, notifications) can
// react without polling storage.
type InboundMessage struct {
	TenantID       string    `json:"tenant_id"`
	ConversationID string    `json:"conversation_id"`
	From           string    `json:"from"`
	Content        string    `json:"content"`
	ReceivedAt     time.Time `json:"received_at"`
}

// Publisher publishes platform events to NATS. A nil Publisher is valid
// and drops everything, so callers never need to branch on configuration.
type Publisher struct {
	nc *nats.Conn
}

// Connect connects to NATS
func Connect(cfg *config.NATSConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("whatsapp-platform"),
		nats.UserInfo(cfg.Username, cfg.Password),
		nats.ReconnectWait(cfg.ReconnectInterval),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("Disconnected from NATS")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Msg("Reconnected to NATS")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &Publisher{nc: nc}, nil
}

// PublishInbound publishes an ingested message on
// whatsapp.events.<tenant_id>
func (p *Publisher) PublishInbound(msg InboundMessage) error {
	if p == nil || p.nc == nil {
		return nil
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := "whatsapp.events." + msg.TenantID
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	return nil
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	p.nc.Close()
}
