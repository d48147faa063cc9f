package app

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/domain"
)

// Gateway event types that drive reconciliation.
const (
	EventPaymentLinkPaid      = "payment_link.paid"
	EventPaymentLinkExpired   = "payment_link.expired"
	EventPaymentLinkCancelled = "payment_link.cancelled"
	EventPaymentFailed        = "payment.failed"
)

// OutcomeForEvent maps a gateway event type to an outcome.
func OutcomeForEvent(eventType string) (domain.Outcome, bool) {
	switch eventType {
	case EventPaymentLinkPaid:
		return domain.OutcomePaid, true
	case EventPaymentLinkExpired:
		return domain.OutcomeExpired, true
	case EventPaymentLinkCancelled:
		return domain.OutcomeCancelled, true
	case EventPaymentFailed:
		return domain.OutcomeFailed, true
	}
	return "", false
}

// GatewayEvent is the part of a payment-gateway notification reconciliation needs.
type GatewayEvent struct {
	Type        string
	ExternalRef string
	PaymentID   string
	// Amount in minor units; zero when the gateway did not report one.
	Amount int64
}

type GatewayResult struct {
	Ignored bool
	FinalizeResult
}

// HandleGatewayEvent resolves the order by its external reference and finalizes it.
func (s *ReconciliationService) HandleGatewayEvent(ctx context.Context, evt GatewayEvent) (GatewayResult, error) {
	outcome, ok := OutcomeForEvent(evt.Type)
	if !ok {
		s.logger.WithField("event", evt.Type).Debug("ignoring gateway event")
		return GatewayResult{Ignored: true}, nil
	}
	ref := strings.TrimSpace(evt.ExternalRef)
	if ref == "" {
		return GatewayResult{}, domain.Invalid("order_id", domain.ErrExternalRefRequired)
	}

	order, err := s.orders.GetOrderByExternalRef(ctx, ref)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) && outcome != domain.OutcomePaid {
			s.logger.WithFields(logrus.Fields{"event": evt.Type, "external_ref": ref}).Warn("release for unknown order")
			return GatewayResult{FinalizeResult: FinalizeResult{Outcome: outcome, Skipped: true}}, nil
		}
		return GatewayResult{}, err
	}

	res, err := s.Finalize(ctx, order.ID, outcome, domain.PaymentDetails{
		TransactionID: strings.TrimSpace(evt.PaymentID),
		Method:        domain.PaymentMethodPaymentLink,
		Amount:        evt.Amount,
		PaidAt:        s.clock.Now(),
	})
	if err != nil {
		return GatewayResult{}, err
	}
	return GatewayResult{FinalizeResult: res}, nil
}
