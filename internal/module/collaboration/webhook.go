package collaboration

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/crewboard/server/internal/module/identity"
	"github.com/crewboard/server/internal/shared/metrics"
	"github.com/crewboard/server/internal/shared/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Identity provider webhook headers.
const (
	HeaderWebhookID        = "svix-id"
	HeaderWebhookTimestamp = "svix-timestamp"
	HeaderWebhookSignature = "svix-signature"

	EventUserCreated = "user.created"

	maxWebhookBody = 1 << 20
)

// WebhookVerifier checks identity provider webhook signatures: an
// HMAC-SHA256 over "id.timestamp.body", base64 encoded and listed as
// space separated "v1,<sig>" entries.
type WebhookVerifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewWebhookVerifier creates a verifier from a "whsec_" prefixed base64
// secret.
func NewWebhookVerifier(secret string, tolerance time.Duration) (*WebhookVerifier, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_"))
	if err != nil {
		return nil, fmt.Errorf("decode webhook secret: %w", err)
	}
	if len(key) == 0 {
		return nil, errors.New("webhook secret is empty")
	}
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}
	return &WebhookVerifier{secret: key, tolerance: tolerance, now: time.Now}, nil
}

// Verify checks the signature headers against body.
func (v *WebhookVerifier) Verify(header http.Header, body []byte) error {
	msgID := header.Get(HeaderWebhookID)
	rawTS := header.Get(HeaderWebhookTimestamp)
	signatures := header.Get(HeaderWebhookSignature)
	if msgID == "" || rawTS == "" || signatures == "" {
		return fmt.Errorf("%w: missing headers", ErrInvalidSignature)
	}

	ts, err := strconv.ParseInt(rawTS, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
	}
	skew := v.now().Sub(time.Unix(ts, 0))
	if math.Abs(float64(skew)) > float64(v.tolerance) {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
	}

	expected := v.Sign(msgID, rawTS, body)
	for _, candidate := range strings.Fields(signatures) {
		version, sig, ok := strings.Cut(candidate, ",")
		if !ok || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return fmt.Errorf("%w: no matching signature", ErrInvalidSignature)
}

// Sign computes the v1 signature for a message.
func (v *WebhookVerifier) Sign(msgID, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(msgID))
	mac.Write([]byte{'.'})
	mac.Write([]byte(timestamp))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// webhookEvent is the identity provider event envelope.
type webhookEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// WebhookHandler receives identity provider events.
type WebhookHandler struct {
	verifier   *WebhookVerifier
	reconciler *Reconciler
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(verifier *WebhookVerifier, reconciler *Reconciler, m *metrics.Metrics, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{
		verifier:   verifier,
		reconciler: reconciler,
		metrics:    m,
		logger:     logger.Named("webhook"),
	}
}

// RegisterRoutes registers the public webhook route.
func (h *WebhookHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/teams/webhook", h.Handle)
}

// Handle verifies and processes an identity provider event.
//
//	@Summary		Identity provider webhook
//	@Description	Completes pending team invitations when an invited identity registers
//	@Tags			Teams
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	response.Envelope{data=WebhookAck}
//	@Failure		400	{object}	response.Envelope
//	@Router			/teams/webhook [post]
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		h.logger.Error("failed to read webhook body", zap.Error(err))
		response.BadRequest(c, "failed to read body")
		return
	}

	if err := h.verifier.Verify(c.Request.Header, body); err != nil {
		h.metrics.RecordWebhook("unknown", "rejected")
		h.logger.Warn("invalid webhook signature", zap.Error(err))
		response.BadRequest(c, "invalid signature")
		return
	}

	// From here on the provider always gets 200 so it does not retry;
	// parse and reconciliation failures are logged.
	ack := WebhookAck{Received: true}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.metrics.RecordWebhook("unknown", "malformed")
		h.logger.Error("failed to parse webhook event",
			zap.String("webhook_id", c.GetHeader(HeaderWebhookID)),
			zap.Error(err),
		)
		response.OK(c, ack)
		return
	}

	switch event.Type {
	case EventUserCreated:
		ack.Outcome = h.handleUserCreated(c, event.Data)
	default:
		h.logger.Debug("unhandled webhook event type", zap.String("type", event.Type))
		h.metrics.RecordWebhook(event.Type, "ignored")
	}

	response.OK(c, ack)
}

func (h *WebhookHandler) handleUserCreated(c *gin.Context, data json.RawMessage) CompletionOutcome {
	id, err := identity.ParseUser(data)
	if err != nil {
		h.metrics.RecordWebhook(EventUserCreated, "malformed")
		h.logger.Error("failed to parse user payload", zap.Error(err))
		return ""
	}

	result, err := h.reconciler.CompleteInvitation(c.Request.Context(), id)
	if err != nil {
		h.metrics.RecordWebhook(EventUserCreated, "failed")
		h.logger.Error("failed to complete invitation",
			zap.String("identity_id", id.ID),
			zap.String("webhook_id", c.GetHeader(HeaderWebhookID)),
			zap.Error(err),
		)
		return ""
	}

	h.metrics.RecordWebhook(EventUserCreated, string(result.Outcome))
	return result.Outcome
}
