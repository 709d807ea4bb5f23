package payments

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/harborline/payments-core/pkg/db/models"
	"github.com/harborline/payments-core/pkg/enums"
)

func session(amount int64, status enums.PaymentSessionStatus) models.PaymentSession {
	return models.PaymentSession{Amount: decimal.NewFromInt(amount), Status: status}
}

func TestAuthorizedTotalCountsOnlyAuthorizedSessions(t *testing.T) {
	sessions := []models.PaymentSession{
		session(40, enums.PaymentSessionStatusAuthorized),
		session(30, enums.PaymentSessionStatusPending),
		session(60, enums.PaymentSessionStatusAuthorized),
		session(10, enums.PaymentSessionStatusError),
	}
	require.True(t, authorizedTotal(sessions).Equal(decimal.NewFromInt(100)))
}

func TestAuthorizedTotalEmpty(t *testing.T) {
	require.True(t, authorizedTotal(nil).IsZero())
}

func TestCollectionStatusFor(t *testing.T) {
	amount := decimal.NewFromInt(100)

	cases := []struct {
		name       string
		current    enums.PaymentCollectionStatus
		authorized decimal.Decimal
		want       enums.PaymentCollectionStatus
	}{
		{"nothing authorized", enums.PaymentCollectionStatusNotPaid, decimal.Zero, enums.PaymentCollectionStatusAwaiting},
		{"partially authorized", enums.PaymentCollectionStatusAwaiting, decimal.NewFromInt(60), enums.PaymentCollectionStatusPartiallyAuthorized},
		{"fully authorized", enums.PaymentCollectionStatusPartiallyAuthorized, amount, enums.PaymentCollectionStatusAuthorized},
		{"over authorized still authorized", enums.PaymentCollectionStatusAwaiting, decimal.NewFromInt(120), enums.PaymentCollectionStatusAuthorized},
		{"canceled is terminal", enums.PaymentCollectionStatusCanceled, amount, enums.PaymentCollectionStatusCanceled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, collectionStatusFor(tc.current, amount, tc.authorized))
		})
	}
}

func TestCapturedAndRefundedTotals(t *testing.T) {
	payment := models.Payment{
		Captures: []models.Capture{
			{Amount: decimal.NewFromInt(30)},
			{Amount: decimal.NewFromInt(20)},
		},
		Refunds: []models.Refund{
			{Amount: decimal.NewFromInt(10)},
		},
	}
	require.True(t, capturedTotal(payment).Equal(decimal.NewFromInt(50)))
	require.True(t, refundedTotal(payment).Equal(decimal.NewFromInt(10)))
}
