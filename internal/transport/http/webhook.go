package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/app"
)

const (
	razorpaySignatureHeader = "X-Razorpay-Signature"
	razorpayEventIDHeader   = "X-Razorpay-Event-Id"
)

// GatewayEventHandler is the minimal interface needed to reconcile gateway callbacks.
type GatewayEventHandler interface {
	HandleGatewayEvent(ctx context.Context, evt app.GatewayEvent) (app.GatewayResult, error)
}

// DeliveryDeduper short-circuits exact redeliveries of one gateway event.
type DeliveryDeduper interface {
	Claim(ctx context.Context, deliveryID string) (bool, error)
	Forget(ctx context.Context, deliveryID string) error
}

type WebhookOptions struct {
	// Secret enables HMAC-SHA256 verification of the raw body.
	Secret  string
	Deduper DeliveryDeduper
}

// HandlePaymentWebhook reconciles payment-link events. Anything the gateway
// cannot fix by retrying is acknowledged with 200 and a code; storage
// failures return 500 so the gateway retries.
func HandlePaymentWebhook(svc GatewayEventHandler, opts WebhookOptions, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		if opts.Secret != "" && !validSignature(body, r.Header.Get(razorpaySignatureHeader), opts.Secret) {
			logger.Warn("webhook signature verification failed")
			writeError(w, http.StatusUnauthorized, codeInvalidSignature, "invalid webhook signature")
			return
		}

		var payload razorpayWebhook
		if err := json.Unmarshal(body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid JSON payload")
			return
		}
		evt := payload.toGatewayEvent()
		log := logger.WithFields(logrus.Fields{"event": evt.Type, "external_ref": evt.ExternalRef})

		deliveryID := strings.TrimSpace(r.Header.Get(razorpayEventIDHeader))
		if deliveryID != "" && opts.Deduper != nil {
			fresh, err := opts.Deduper.Claim(r.Context(), deliveryID)
			switch {
			case err != nil:
				log.WithError(err).Warn("webhook dedupe unavailable")
			case !fresh:
				log.WithField("delivery_id", deliveryID).Info("duplicate webhook delivery")
				writeJSON(w, http.StatusOK, webhookResponse{Acknowledged: true, Duplicate: true, Event: evt.Type})
				return
			}
		}

		res, err := svc.HandleGatewayEvent(r.Context(), evt)
		if err != nil {
			status, code, details := classify(err)
			if status == http.StatusInternalServerError {
				if deliveryID != "" && opts.Deduper != nil {
					if ferr := opts.Deduper.Forget(context.WithoutCancel(r.Context()), deliveryID); ferr != nil {
						log.WithError(ferr).Warn("forget webhook delivery")
					}
				}
				log.WithError(err).Error("webhook processing failed")
				writeError(w, status, code, "internal error")
				return
			}
			log.WithError(err).WithField("code", code).Error("webhook acknowledged with error")
			writeJSON(w, http.StatusOK, webhookResponse{
				Acknowledged: true,
				Event:        evt.Type,
				Code:         code,
				Error:        err.Error(),
				Details:      details,
			})
			return
		}

		if res.Ignored {
			log.Info("webhook event ignored")
			writeJSON(w, http.StatusOK, webhookResponse{Acknowledged: true, Ignored: true, Event: evt.Type})
			return
		}

		result := newFinalizeResponse(res.FinalizeResult)
		writeJSON(w, http.StatusOK, webhookResponse{Acknowledged: true, Event: evt.Type, Result: &result})
	}
}

func validSignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

type razorpayEntity struct {
	ID         string `json:"id"`
	OrderID    string `json:"order_id"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amount_paid"`
}

type razorpayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		PaymentLink *struct {
			Entity razorpayEntity `json:"entity"`
		} `json:"payment_link"`
		Payment *struct {
			Entity razorpayEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func (p razorpayWebhook) toGatewayEvent() app.GatewayEvent {
	evt := app.GatewayEvent{Type: p.Event}
	if link := p.Payload.PaymentLink; link != nil {
		evt.ExternalRef = link.Entity.OrderID
		evt.Amount = link.Entity.AmountPaid
	}
	if pay := p.Payload.Payment; pay != nil {
		evt.PaymentID = pay.Entity.ID
		if evt.ExternalRef == "" {
			evt.ExternalRef = pay.Entity.OrderID
		}
		if pay.Entity.Amount > 0 {
			evt.Amount = pay.Entity.Amount
		}
	}
	return evt
}

type webhookResponse struct {
	Acknowledged bool              `json:"acknowledged"`
	Event        string            `json:"event"`
	Ignored      bool              `json:"ignored,omitempty"`
	Duplicate    bool              `json:"duplicate,omitempty"`
	Code         string            `json:"code,omitempty"`
	Error        string            `json:"error,omitempty"`
	Details      any               `json:"details,omitempty"`
	Result       *finalizeResponse `json:"result,omitempty"`
}
