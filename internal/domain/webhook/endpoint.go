package webhook

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds a delivery request when the endpoint does not set one.
const DefaultTimeout = 30 * time.Second

// Endpoint is a merchant application's webhook receiver. The signing secret is
// never exposed unmasked outside the signer: String and JSON marshaling both
// mask it.
type Endpoint struct {
	ID             uuid.UUID
	ApplicationID  uuid.UUID
	URL            string
	Secret         string
	Headers        map[string]string
	Timeout        time.Duration // 0 = DefaultTimeout
	Active         bool
	SuccessCount   int64
	FailureCount   int64
	LastDeliveryAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewEndpoint creates an active endpoint for an application.
func NewEndpoint(applicationID uuid.UUID, url, secret string, now time.Time) *Endpoint {
	return &Endpoint{
		ID:            uuid.New(),
		ApplicationID: applicationID,
		URL:           url,
		Secret:        secret,
		Headers:       make(map[string]string),
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// EffectiveTimeout returns the configured request timeout, falling back to
// DefaultTimeout when unset.
func (e *Endpoint) EffectiveTimeout() time.Duration {
	if e.Timeout > 0 {
		return e.Timeout
	}
	return DefaultTimeout
}

// MaskedSecret returns a redacted form of the signing secret safe for logs
// and API responses.
func (e *Endpoint) MaskedSecret() string {
	if e.Secret == "" {
		return ""
	}
	if len(e.Secret) <= 8 {
		return "****"
	}
	return e.Secret[:4] + "****" + e.Secret[len(e.Secret)-4:]
}

// MarshalJSON masks the secret. The raw secret only ever reaches the signer.
func (e *Endpoint) MarshalJSON() ([]byte, error) {
	type alias struct {
		ID             uuid.UUID         `json:"id"`
		ApplicationID  uuid.UUID         `json:"application_id"`
		URL            string            `json:"url"`
		Secret         string            `json:"secret"`
		Headers        map[string]string `json:"headers,omitempty"`
		TimeoutSeconds int               `json:"timeout_seconds"`
		Active         bool              `json:"active"`
		SuccessCount   int64             `json:"success_count"`
		FailureCount   int64             `json:"failure_count"`
		LastDeliveryAt *time.Time        `json:"last_delivery_at,omitempty"`
		CreatedAt      time.Time         `json:"created_at"`
		UpdatedAt      time.Time         `json:"updated_at"`
	}
	return json.Marshal(alias{
		ID:             e.ID,
		ApplicationID:  e.ApplicationID,
		URL:            e.URL,
		Secret:         e.MaskedSecret(),
		Headers:        e.Headers,
		TimeoutSeconds: int(e.EffectiveTimeout() / time.Second),
		Active:         e.Active,
		SuccessCount:   e.SuccessCount,
		FailureCount:   e.FailureCount,
		LastDeliveryAt: e.LastDeliveryAt,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	})
}

// String implements fmt.Stringer with the secret masked.
func (e *Endpoint) String() string {
	return "webhook.Endpoint{" + e.ID.String() + " " + e.URL + " secret=" + e.MaskedSecret() + "}"
}
