package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/arkline/erp-api/internal/domain/billing"
	apperrors "github.com/arkline/erp-api/internal/errors"
	"github.com/arkline/erp-api/internal/mocks"
	"github.com/arkline/erp-api/internal/mocks/fakes"
	"github.com/arkline/erp-api/internal/observability/notify"
	"github.com/arkline/erp-api/internal/ports"
	"github.com/arkline/erp-api/internal/testutil"
)

type stubRenderer struct {
	err   error
	calls int
}

func (r *stubRenderer) RenderInvoicePDF(billing.InvoiceSnapshot) ([]byte, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.4 stub"), nil
}

type stubComposer struct{}

func (stubComposer) ComposeInvoice(kind billing.DispatchKind, snap billing.InvoiceSnapshot) (string, string, error) {
	return "Invoice " + snap.Number, "<p>" + string(kind) + "</p>", nil
}

func (stubComposer) ComposeWelcome(recipient string) (string, string, error) {
	return "Welcome", "<p>Hello " + recipient + "</p>", nil
}

func (stubComposer) ComposePasswordReset(recipient string) (string, string, error) {
	return "Password reset", "<p>Reset for " + recipient + "</p>", nil
}

type dispatcherFixture struct {
	store    *fakes.MemoryDispatchStore
	invoices *fakes.FakeInvoiceStore
	delivery *fakes.FakeDeliveryClient
	renderer *stubRenderer
	failures []notify.DispatchFailurePayload
	svc      *Dispatcher
}

func newDispatcherFixture(t *testing.T) *dispatcherFixture {
	t.Helper()
	f := &dispatcherFixture{
		store:    &fakes.MemoryDispatchStore{},
		invoices: &fakes.FakeInvoiceStore{},
		delivery: &fakes.FakeDeliveryClient{},
		renderer: &stubRenderer{},
	}
	sink := notify.SinkFunc(func(_ context.Context, p notify.DispatchFailurePayload) error {
		f.failures = append(f.failures, p)
		return nil
	})
	f.svc = NewDispatcher(DispatcherOptions{
		Store:    f.store,
		Invoices: f.invoices,
		Delivery: f.delivery,
		Renderer: f.renderer,
		Composer: stubComposer{},
		Sinks:    []notify.Sink{sink},
	})
	return f
}

func (f *dispatcherFixture) seedInvoice(t *testing.T) *billing.Invoice {
	t.Helper()
	snap := testutil.NewInvoiceSnapshot().WithNumber("INV-2026-001").Build()
	inv, err := f.invoices.Create(context.Background(), &billing.Invoice{
		Number:   snap.Number,
		ClientID: "client-1",
		Snapshot: snap,
		Total:    snap.Total,
	})
	require.NoError(t, err)
	return inv
}

func TestEnqueueInvoiceCreated(t *testing.T) {
	f := newDispatcherFixture(t)
	inv := f.seedInvoice(t)

	queued, err := f.svc.EnqueueInvoiceCreated(context.Background(), inv)
	require.NoError(t, err)

	assert.Equal(t, billing.DispatchStatusPending, queued.Status)
	assert.Equal(t, billing.DispatchKindInvoiceCreated, queued.Kind)
	assert.Equal(t, inv.Snapshot.BilledTo.Email, queued.Recipient)
	// Nothing is sent until the worker claims the row.
	assert.Empty(t, f.delivery.Sent)
}

func TestEnqueueValidation(t *testing.T) {
	f := newDispatcherFixture(t)

	_, err := f.svc.EnqueueInvoiceCreated(context.Background(), nil)
	assert.True(t, apperrors.IsValidation(err))

	inv := &billing.Invoice{ID: "inv-1"}
	_, err = f.svc.EnqueueInvoiceCreated(context.Background(), inv)
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.svc.EnqueueWelcome(context.Background(), "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestEnqueueSucceedsWithBrokenDelivery(t *testing.T) {
	f := newDispatcherFixture(t)
	inv := f.seedInvoice(t)
	f.delivery.SendFunc = func(context.Context, ports.EmailMessage) (string, error) {
		return "", apperrors.New(apperrors.ErrCodeDeliveryTransport, "relay unreachable")
	}

	// Queueing is decoupled from delivery: the triggering request never
	// waits on, or fails with, the relay.
	queued, err := f.svc.EnqueueInvoiceCreated(context.Background(), inv)
	require.NoError(t, err)
	assert.Equal(t, billing.DispatchStatusPending, queued.Status)
}

func TestProcessOneDeliversInvoice(t *testing.T) {
	f := newDispatcherFixture(t)
	inv := f.seedInvoice(t)
	queued, err := f.svc.EnqueueInvoiceCreated(context.Background(), inv)
	require.NoError(t, err)

	require.NoError(t, f.svc.ProcessOne(context.Background()))

	assert.Equal(t, billing.DispatchStatusSent, queued.Status)
	require.NotNil(t, queued.MessageID)
	assert.Equal(t, "message-id-1", *queued.MessageID)
	assert.Equal(t, 1, queued.Attempts)

	require.Len(t, f.delivery.Sent, 1)
	msg := f.delivery.Sent[0]
	assert.Equal(t, inv.Snapshot.BilledTo.Email, msg.To)
	assert.Equal(t, "Invoice INV-2026-001", msg.Subject)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "invoice-INV-2026-001.pdf", msg.Attachments[0].Filename)
	assert.Equal(t, "application/pdf", msg.Attachments[0].ContentType)

	// The invoice status follow-up ran.
	assert.Equal(t, []string{inv.ID}, f.invoices.MarkedSent)
	assert.Equal(t, billing.InvoiceStatusSent, inv.Status)
}

func TestProcessOneReminderMarksReminderSent(t *testing.T) {
	f := newDispatcherFixture(t)
	inv := f.seedInvoice(t)
	inv.Status = billing.InvoiceStatusSent
	_, err := f.svc.EnqueueReminder(context.Background(), inv)
	require.NoError(t, err)

	require.NoError(t, f.svc.ProcessOne(context.Background()))
	assert.Equal(t, billing.InvoiceStatusReminderSent, inv.Status)
}

func TestProcessOneWelcomeHasNoAttachment(t *testing.T) {
	f := newDispatcherFixture(t)
	_, err := f.svc.EnqueueWelcome(context.Background(), "ama@example.com")
	require.NoError(t, err)

	require.NoError(t, f.svc.ProcessOne(context.Background()))

	require.Len(t, f.delivery.Sent, 1)
	msg := f.delivery.Sent[0]
	assert.Equal(t, "ama@example.com", msg.To)
	assert.Empty(t, msg.Attachments)
	assert.Zero(t, f.renderer.calls)
	assert.Empty(t, f.invoices.MarkedSent)
}

func TestProcessOnePasswordResetNotice(t *testing.T) {
	f := newDispatcherFixture(t)
	queued, err := f.svc.EnqueuePasswordReset(context.Background(), "ama@example.com")
	require.NoError(t, err)
	assert.Equal(t, billing.DispatchKindPasswordReset, queued.Kind)

	require.NoError(t, f.svc.ProcessOne(context.Background()))

	require.Len(t, f.delivery.Sent, 1)
	msg := f.delivery.Sent[0]
	assert.Equal(t, "ama@example.com", msg.To)
	assert.Equal(t, "Password reset", msg.Subject)
	assert.Empty(t, msg.Attachments)
	assert.Zero(t, f.renderer.calls)
}

func TestProcessOneEmptyQueue(t *testing.T) {
	f := newDispatcherFixture(t)
	err := f.svc.ProcessOne(context.Background())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestProcessOneDeliveryFailure(t *testing.T) {
	f := newDispatcherFixture(t)
	inv := f.seedInvoice(t)
	queued, err := f.svc.EnqueueInvoiceCreated(context.Background(), inv)
	require.NoError(t, err)
	f.delivery.SendFunc = func(context.Context, ports.EmailMessage) (string, error) {
		return "", apperrors.New(apperrors.ErrCodeDeliveryTransport, "relay unreachable")
	}

	require.NoError(t, f.svc.ProcessOne(context.Background()))

	assert.Equal(t, billing.DispatchStatusFailed, queued.Status)
	require.NotNil(t, queued.LastError)
	assert.Contains(t, *queued.LastError, "relay unreachable")
	// The invoice does not advance on a failed send.
	assert.Equal(t, billing.InvoiceStatusDraft, inv.Status)

	// The ops sinks heard about it.
	require.Len(t, f.failures, 1)
	assert.Equal(t, queued.ID, f.failures[0].DispatchID)
	assert.Equal(t, inv.ID, f.failures[0].InvoiceID)
	assert.Equal(t, "delivery_transport", f.failures[0].ErrorCode)
	assert.Equal(t, 1, f.failures[0].Attempts)
}

func TestProcessOneRenderFailure(t *testing.T) {
	f := newDispatcherFixture(t)
	inv := f.seedInvoice(t)
	queued, err := f.svc.EnqueueInvoiceCreated(context.Background(), inv)
	require.NoError(t, err)
	f.renderer.err = apperrors.New(apperrors.ErrCodeInternal, "font missing")

	require.NoError(t, f.svc.ProcessOne(context.Background()))

	assert.Equal(t, billing.DispatchStatusFailed, queued.Status)
	assert.Empty(t, f.delivery.Sent)
	require.Len(t, f.failures, 1)
	assert.True(t, strings.Contains(f.failures[0].Error, "render invoice pdf"))
}

func TestProcessOneMissingInvoiceFailsDispatch(t *testing.T) {
	f := newDispatcherFixture(t)
	missing := "inv-gone"
	queued, err := f.store.Enqueue(context.Background(), &billing.Dispatch{
		InvoiceID: &missing,
		Kind:      billing.DispatchKindInvoiceCreated,
		Recipient: "ama@example.com",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.ProcessOne(context.Background()))
	assert.Equal(t, billing.DispatchStatusFailed, queued.Status)
	require.Len(t, f.failures, 1)
	assert.Equal(t, "not_found", f.failures[0].ErrorCode)
}

func TestRunStopsOnCancelAndSleepsWhenIdle(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockDispatchStore(ctrl)
	store.EXPECT().ClaimNext(gomock.Any()).
		Return(nil, apperrors.New(apperrors.ErrCodeNotFound, "no pending dispatch")).
		AnyTimes()

	svc := NewDispatcher(DispatcherOptions{
		Store:        store,
		Invoices:     &fakes.FakeInvoiceStore{},
		Delivery:     &fakes.FakeDeliveryClient{},
		Renderer:     &stubRenderer{},
		Composer:     stubComposer{},
		PollInterval: 5 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after cancel")
	}
}

func TestReEnqueueProducesNewSend(t *testing.T) {
	f := newDispatcherFixture(t)
	inv := f.seedInvoice(t)

	_, err := f.svc.EnqueueInvoiceCreated(context.Background(), inv)
	require.NoError(t, err)
	require.NoError(t, f.svc.ProcessOne(context.Background()))

	second, err := f.svc.EnqueueInvoiceCreated(context.Background(), inv)
	require.NoError(t, err)
	require.NoError(t, f.svc.ProcessOne(context.Background()))

	assert.Len(t, f.delivery.Sent, 2)

	latest, err := f.svc.Status(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}
