package payments

import (
	"github.com/shopspring/decimal"

	"github.com/harborline/payments-core/pkg/db/models"
	"github.com/harborline/payments-core/pkg/enums"
)

// authorizedTotal sums the amounts of every authorized session. The aggregate
// is always derived from the full session set, never accumulated
// incrementally, so repeated authorization calls converge on the same value.
func authorizedTotal(sessions []models.PaymentSession) decimal.Decimal {
	total := decimal.Zero
	for _, session := range sessions {
		if session.Status == enums.PaymentSessionStatusAuthorized {
			total = total.Add(session.Amount)
		}
	}
	return total
}

// collectionStatusFor derives the collection status from its amount and the
// authorized total. Cancellation is terminal and never recomputed away.
func collectionStatusFor(current enums.PaymentCollectionStatus, amount, authorized decimal.Decimal) enums.PaymentCollectionStatus {
	if current == enums.PaymentCollectionStatusCanceled {
		return current
	}
	switch {
	case authorized.IsZero():
		return enums.PaymentCollectionStatusAwaiting
	case authorized.LessThan(amount):
		return enums.PaymentCollectionStatusPartiallyAuthorized
	default:
		return enums.PaymentCollectionStatusAuthorized
	}
}

// capturedTotal sums the append-only capture trail of a payment.
func capturedTotal(payment models.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, capture := range payment.Captures {
		total = total.Add(capture.Amount)
	}
	return total
}

// refundedTotal sums the append-only refund trail of a payment.
func refundedTotal(payment models.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, refund := range payment.Refunds {
		total = total.Add(refund.Amount)
	}
	return total
}
