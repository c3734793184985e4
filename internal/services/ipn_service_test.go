package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/coinbridge/internal/coinbase"
	"github.com/example/coinbridge/internal/models"
	"github.com/example/coinbridge/internal/services"
	"github.com/example/coinbridge/internal/testutil"
	"github.com/example/coinbridge/internal/workflow"
)

type recordingNotifier struct {
	sent chan services.OrderPlacedNotification
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{sent: make(chan services.OrderPlacedNotification, 4)}
}

func (r *recordingNotifier) NotifyOrderPlaced(ctx context.Context, n services.OrderPlacedNotification) error {
	r.sent <- n
	return nil
}

func seed(t *testing.T, order models.Order) (*testutil.MemStore, models.Order) {
	t.Helper()
	store := testutil.NewMemStore()
	store.PutGateway(testutil.Gateway())
	return store, store.PutOrder(order)
}

func signed(n testutil.Notification) ([]byte, string) {
	body := n.Body()
	return body, coinbase.Sign(body, testutil.SecretKey)
}

func requireRejected(t *testing.T, err error, reason services.RejectReason) {
	t.Helper()
	var rejection *services.RejectionError
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, reason, rejection.Reason)
}

func TestProcess_ConfirmedCompletesPaymentAndOrder(t *testing.T) {
	store, order := seed(t, testutil.DraftOrder())
	svc := services.NewIPNService(store, coinbase.VariantEvent, nil)

	body, sig := signed(testutil.Confirmed())
	result, err := svc.Process(context.Background(), body, sig)
	require.NoError(t, err)

	assert.Equal(t, coinbase.OutcomePlace, result.Outcome)
	assert.True(t, result.TransitionApplied)
	assert.False(t, result.Stale)

	payments := store.Payments()
	require.Len(t, payments, 1)
	p := payments[0]
	assert.Equal(t, order.ID, p.OrderID)
	assert.Equal(t, "charge-42", p.RemoteID)
	assert.Equal(t, coinbase.PaymentStateCompleted, p.State)
	assert.Equal(t, "COMPLETED", p.RemoteState)
	assert.Equal(t, "0xfeed", p.TransactionID)
	assert.Equal(t, testutil.GatewayID, p.PaymentGatewayID)
	require.True(t, p.Amount.Valid)
	assert.True(t, p.Amount.Decimal.Equal(decimal.RequireFromString("50")))
	assert.Equal(t, "EUR", p.Currency)
	assert.NotNil(t, p.CompletedAt)

	stored := store.Order(order.ID)
	assert.Equal(t, workflow.StateCompleted, stored.State)
	assert.NotNil(t, stored.PlacedAt)
}

func TestProcess_FailedCancelsOrder(t *testing.T) {
	store, order := seed(t, testutil.DraftOrder())
	svc := services.NewIPNService(store, coinbase.VariantEvent, nil)

	body, sig := signed(testutil.Failed())
	result, err := svc.Process(context.Background(), body, sig)
	require.NoError(t, err)
	assert.Equal(t, coinbase.OutcomeMarkFailed, result.Outcome)

	payments := store.Payments()
	require.Len(t, payments, 1)
	assert.Equal(t, coinbase.PaymentStateFailed, payments[0].State)
	assert.Equal(t, "EXPIRED", payments[0].RemoteState)
	assert.Nil(t, payments[0].CompletedAt)
	assert.Equal(t, workflow.StateCanceled, store.Order(order.ID).State)
}

func TestProcess_DuplicateDeliveryIsIdempotent(t *testing.T) {
	store, order := seed(t, testutil.DraftOrder())
	svc := services.NewIPNService(store, coinbase.VariantEvent, nil)
	body, sig := signed(testutil.Confirmed())

	_, err := svc.Process(context.Background(), body, sig)
	require.NoError(t, err)
	first := store.Payments()
	firstOrder := store.Order(order.ID)

	result, err := svc.Process(context.Background(), body, sig)
	require.NoError(t, err)
	assert.False(t, result.TransitionApplied)

	second := store.Payments()
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[0].State, second[0].State)
	assert.Equal(t, first[0].RemoteState, second[0].RemoteState)
	assert.Equal(t, first[0].TransactionID, second[0].TransactionID)
	assert.Equal(t, first[0].Currency, second[0].Currency)
	assert.True(t, first[0].Amount.Decimal.Equal(second[0].Amount.Decimal))
	assert.Equal(t, first[0].CompletedAt, second[0].CompletedAt)

	secondOrder := store.Order(order.ID)
	assert.Equal(t, firstOrder.State, secondOrder.State)
	assert.Equal(t, firstOrder.PlacedAt, secondOrder.PlacedAt)
	assert.Equal(t, 1, store.OrderSaves)
}

func TestProcess_SignatureGate(t *testing.T) {
	body, sig := signed(testutil.Confirmed())

	tests := []struct {
		name      string
		body      []byte
		signature string
	}{
		{"missing signature", body, ""},
		{"wrong secret", body, coinbase.Sign(body, "another-secret")},
		{"tampered body", append([]byte(" "), body...), sig},
		{"not hex", body, "zz" + sig[2:]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, order := seed(t, testutil.DraftOrder())
			svc := services.NewIPNService(store, coinbase.VariantEvent, nil)

			_, err := svc.Process(context.Background(), tt.body, tt.signature)
			requireRejected(t, err, services.ReasonSignatureInvalid)
			assert.ErrorIs(t, err, coinbase.ErrSignatureInvalid)

			assert.Zero(t, store.Writes())
			assert.Zero(t, store.NotificationWrites)
			assert.Equal(t, workflow.StateDraft, store.Order(order.ID).State)
		})
	}
}

func TestProcess_RejectsBeforeAnyWrite(t *testing.T) {
	t.Run("missing order id", func(t *testing.T) {
		store, _ := seed(t, testutil.DraftOrder())
		svc := services.NewIPNService(store, coinbase.VariantEvent, nil)

		n := testutil.Confirmed()
		n.OrderID = ""
		body, sig := signed(n)

		_, err := svc.Process(context.Background(), body, sig)
		requireRejected(t, err, services.ReasonMalformedPayload)
		assert.ErrorIs(t, err, coinbase.ErrMalformedPayload)
		assert.Zero(t, store.Writes())
	})

	t.Run("not json", func(t *testing.T) {
		store, _ := seed(t, testutil.DraftOrder())
		svc := services.NewIPNService(store, coinbase.VariantEvent, nil)

		_, err := svc.Process(context.Background(), []byte("not json"), "")
		requireRejected(t, err, services.ReasonMalformedPayload)
	})

	t.Run("unknown order", func(t *testing.T) {
		store, _ := seed(t, testutil.DraftOrder())
		svc := services.NewIPNService(store, coinbase.VariantEvent, nil)

		n := testutil.Confirmed()
		n.OrderID = "9999"
		body, sig := signed(n)

		_, err := svc.Process(context.Background(), body, sig)
		requireRejected(t, err, services.ReasonOrderNotFound)
		assert.ErrorIs(t, err, services.ErrOrderNotFound)
		assert.Zero(t, store.Writes())
	})

	t.Run("gateway not configured", func(t *testing.T) {
		order := testutil.DraftOrder()
		order.PaymentGatewayID = "coinbase_eu"
		store, _ := seed(t, order)
		svc := services.NewIPNService(store, coinbase.VariantEvent, nil)

		body, sig := signed(testutil.Confirmed())
		_, err := svc.Process(context.Background(), body, sig)
		requireRejected(t, err, services.ReasonGatewayConfigNotFound)
		assert.Zero(t, store.Writes())
	})

	t.Run("gateway without secret", func(t *testing.T) {
		store, _ := seed(t, testutil.DraftOrder())
		gw := testutil.Gateway()
		gw.SecretKey = "  "
		store.PutGateway(gw)
		svc := services.NewIPNService(store, coinbase.VariantEvent, nil)

		body, sig := signed(testutil.Confirmed())
		_, err := svc.Process(context.Background(), body, sig)
		requireRejected(t, err, services.ReasonGatewayConfigNotFound)
		assert.ErrorIs(t, err, services.ErrGatewayConfigNotFound)
		assert.Zero(t, store.Writes())
	})
}

func TestProcess_ConfirmedAmountSelection(t *testing.T) {
	store, _ := seed(t, testutil.DraftOrder())
	svc := services.NewIPNService(store, coinbase.VariantEvent, nil)

	n := testutil.Confirmed()
	n.Payments = []testutil.PaymentFixture{
		{Status: "PENDING", TransactionID: "0xaaa", Amount: "10.00", Currency: "USD"},
		{Status: "CONFIRMED", TransactionID: "0xfeed", Amount: "50.00", Currency: "EUR"},
	}
	body, sig := signed(n)

	_, err := svc.Process(context.Background(), body, sig)
	require.NoError(t, err)

	p := store.Payments()[0]
	assert.True(t, p.Amount.Decimal.Equal(decimal.RequireFromString("50.00")))
	assert.Equal(t, "EUR", p.Currency)
	assert.Equal(t, "0xfeed", p.TransactionID)
}

func TestProcess_IllegalTransitionLeavesOrderUntouched(t *testing.T) {
	order := testutil.DraftOrder()
	order.State = workflow.StateCanceled
	store, order := seed(t, order)
	svc := services.NewIPNService(store, coinbase.VariantEvent, nil)

	body, sig := signed(testutil.Confirmed())
	result, err := svc.Process(context.Background(), body, sig)
	require.NoError(t, err)

	assert.False(t, result.TransitionApplied)
	assert.Equal(t, workflow.StateCanceled, store.Order(order.ID).State)
	assert.Nil(t, store.Order(order.ID).PlacedAt)
	assert.Zero(t, store.OrderSaves)
	assert.Equal(t, coinbase.PaymentStateCompleted, store.Payments()[0].State)
}

func TestProcess_StaleFailureDoesNotCancelCompletedOrder(t *testing.T) {
	store, order := seed(t, testutil.DraftOrder())
	svc := services.NewIPNService(store, coinbase.VariantEvent, nil)

	body, sig := signed(testutil.Confirmed())
	_, err := svc.Process(context.Background(), body, sig)
	require.NoError(t, err)

	body, sig = signed(testutil.Failed())
	result, err := svc.Process(context.Background(), body, sig)
	require.NoError(t, err)
	assert.True(t, result.Stale)

	p := store.Payments()[0]
	assert.Equal(t, coinbase.PaymentStateCompleted, p.State)
	assert.Equal(t, "EXPIRED", p.RemoteState)
	assert.Equal(t, workflow.StateCompleted, store.Order(order.ID).State)
}

func TestProcess_TimelineVariant(t *testing.T) {
	tests := []struct {
		name         string
		timeline     []testutil.TimelineFixture
		outcome      coinbase.Outcome
		paymentState string
		orderState   string
	}{
		{
			name:         "resolved places",
			timeline:     []testutil.TimelineFixture{{Status: "NEW"}, {Status: "UNRESOLVED", Context: "UNDERPAID"}, {Status: "RESOLVED"}},
			outcome:      coinbase.OutcomePlace,
			paymentState: coinbase.PaymentStateCompleted,
			orderState:   workflow.StateCompleted,
		},
		{
			name:         "overpaid places",
			timeline:     []testutil.TimelineFixture{{Status: "NEW"}, {Status: "UNRESOLVED", Context: "OVERPAID"}},
			outcome:      coinbase.OutcomePlace,
			paymentState: coinbase.PaymentStateCompleted,
			orderState:   workflow.StateCompleted,
		},
		{
			name:         "underpaid waits",
			timeline:     []testutil.TimelineFixture{{Status: "NEW"}, {Status: "UNRESOLVED", Context: "UNDERPAID"}},
			outcome:      coinbase.OutcomeNoOp,
			paymentState: coinbase.PaymentStateNew,
			orderState:   workflow.StateDraft,
		},
		{
			name:         "canceled cancels",
			timeline:     []testutil.TimelineFixture{{Status: "NEW"}, {Status: "CANCELED"}},
			outcome:      coinbase.OutcomeCancel,
			paymentState: coinbase.PaymentStateFailed,
			orderState:   workflow.StateCanceled,
		},
		{
			name:         "pending waits",
			timeline:     []testutil.TimelineFixture{{Status: "NEW"}, {Status: "PENDING"}},
			outcome:      coinbase.OutcomeNoOp,
			paymentState: coinbase.PaymentStateNew,
			orderState:   workflow.StateDraft,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, order := seed(t, testutil.DraftOrder())
			svc := services.NewIPNService(store, coinbase.VariantTimeline, nil)

			n := testutil.Confirmed()
			n.EventType = "charge:pending"
			n.Payments = nil
			n.Timeline = tt.timeline
			body, sig := signed(n)

			result, err := svc.Process(context.Background(), body, sig)
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, result.Outcome)

			payments := store.Payments()
			require.Len(t, payments, 1)
			assert.Equal(t, tt.paymentState, payments[0].State)
			assert.Equal(t, tt.timeline[len(tt.timeline)-1].Status, payments[0].RemoteState)
			assert.False(t, payments[0].Amount.Valid)
			assert.Equal(t, tt.orderState, store.Order(order.ID).State)
		})
	}
}

func TestProcess_StorageFailurePropagates(t *testing.T) {
	store, order := seed(t, testutil.DraftOrder())
	store.FailPaymentWrites = errors.New("connection reset")
	svc := services.NewIPNService(store, coinbase.VariantEvent, nil)

	body, sig := signed(testutil.Confirmed())
	_, err := svc.Process(context.Background(), body, sig)
	require.Error(t, err)

	var rejection *services.RejectionError
	assert.False(t, errors.As(err, &rejection))
	assert.Equal(t, workflow.StateDraft, store.Order(order.ID).State)
	assert.Empty(t, store.Payments())

	notifications := store.Notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationStatusHandleFailed, notifications[0].Status)
	assert.Contains(t, notifications[0].Error, "connection reset")
}

func TestProcess_RecordsNotification(t *testing.T) {
	store, order := seed(t, testutil.DraftOrder())
	svc := services.NewIPNService(store, coinbase.VariantEvent, nil)

	body, sig := signed(testutil.Confirmed())
	_, err := svc.Process(context.Background(), body, sig)
	require.NoError(t, err)

	notifications := store.Notifications()
	require.Len(t, notifications, 1)
	n := notifications[0]
	assert.Equal(t, "coinbase", n.Provider)
	assert.Equal(t, "evt-confirmed", n.EventID)
	assert.Equal(t, "charge:confirmed", n.EventType)
	assert.Equal(t, "charge-42", n.ChargeID)
	assert.Equal(t, order.OrderNumber, n.OrderRef)
	assert.Equal(t, string(coinbase.OutcomePlace), n.Outcome)
	assert.Equal(t, models.NotificationStatusHandled, n.Status)
	assert.Equal(t, sig, n.Signature)
	assert.JSONEq(t, string(body), string(n.Payload))
	assert.NotNil(t, n.ProcessedAt)
}

func TestProcess_NotifiesWhenOrderPlaced(t *testing.T) {
	store, _ := seed(t, testutil.DraftOrder())
	notifier := newRecordingNotifier()
	svc := services.NewIPNService(store, coinbase.VariantEvent, notifier)

	body, sig := signed(testutil.Confirmed())
	_, err := svc.Process(context.Background(), body, sig)
	require.NoError(t, err)

	select {
	case n := <-notifier.sent:
		assert.Equal(t, "42", n.OrderNumber)
		assert.Equal(t, "charge-42", n.ChargeID)
		assert.Equal(t, "0xfeed", n.TransactionID)
		assert.Equal(t, "buyer@example.com", n.CustomerEmail)
		assert.Equal(t, workflow.StateCompleted, n.OrderState)
	case <-time.After(2 * time.Second):
		t.Fatal("expected an order placed notification")
	}

	// A failure never notifies.
	body, sig = signed(testutil.Failed())
	_, err = svc.Process(context.Background(), body, sig)
	require.NoError(t, err)
	select {
	case n := <-notifier.sent:
		t.Fatalf("unexpected notification for %s", n.OrderNumber)
	case <-time.After(50 * time.Millisecond):
	}
}
