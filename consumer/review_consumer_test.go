package consumer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gigconnectportfolio/gigconnect-order-service/consumer"
	"github.com/gigconnectportfolio/gigconnect-order-service/models"
	aws_pkg "github.com/gigconnectportfolio/gigconnect-order-service/pkg/aws"
	"github.com/gigconnectportfolio/gigconnect-order-service/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeApplier struct {
	calls []*models.ReviewMessage
	err   *services.ServiceError
}

func (f *fakeApplier) ApplyReview(_ context.Context, msg *models.ReviewMessage) (*models.Order, *services.ServiceError) {
	f.calls = append(f.calls, msg)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Order{OrderID: msg.OrderID}, nil
}

type memLedger struct {
	seen     map[string]bool
	checkErr error
	markErr  error
}

func (l *memLedger) IsProcessed(_ context.Context, id string) (bool, error) {
	if l.checkErr != nil {
		return false, l.checkErr
	}
	return l.seen[id], nil
}

func (l *memLedger) MarkProcessed(_ context.Context, id string) error {
	if l.markErr != nil {
		return l.markErr
	}
	l.seen[id] = true
	return nil
}

type fakePoller struct {
	messages []aws_pkg.Message
	results  []error
}

func (p *fakePoller) StartPolling(ctx context.Context, handler aws_pkg.MessageHandler) error {
	for _, m := range p.messages {
		p.results = append(p.results, handler(ctx, m))
	}
	return context.Canceled
}

const reviewBody = `{"orderId":"ord-1","rating":5,"review":"great","type":"buyer-review"}`

func newConsumer(applier *fakeApplier, ledger *memLedger) *consumer.ReviewConsumer {
	return consumer.NewReviewConsumer(&fakePoller{}, applier, ledger, nil, zap.NewNop())
}

func TestHandleMessage_AppliesReview(t *testing.T) {
	applier := &fakeApplier{}
	c := newConsumer(applier, &memLedger{seen: map[string]bool{}})

	err := c.HandleMessage(context.Background(), aws_pkg.Message{ID: "m1", Body: reviewBody})

	require.NoError(t, err)
	require.Len(t, applier.calls, 1)
	assert.Equal(t, "ord-1", applier.calls[0].OrderID)
	assert.Equal(t, 5, applier.calls[0].Rating)
	assert.Equal(t, models.ReviewTypeBuyer, applier.calls[0].Type)
}

func TestHandleMessage_UnwrapsSNSEnvelope(t *testing.T) {
	applier := &fakeApplier{}
	c := newConsumer(applier, &memLedger{seen: map[string]bool{}})
	body := `{"Type":"Notification","Message":"{\"orderId\":\"ord-2\",\"rating\":3,\"type\":\"seller-review\"}"}`

	err := c.HandleMessage(context.Background(), aws_pkg.Message{ID: "m1", Body: body})

	require.NoError(t, err)
	require.Len(t, applier.calls, 1)
	assert.Equal(t, "ord-2", applier.calls[0].OrderID)
	assert.Equal(t, models.ReviewTypeSeller, applier.calls[0].Type)
}

func TestHandleMessage_DuplicateSkipped(t *testing.T) {
	applier := &fakeApplier{}
	c := newConsumer(applier, &memLedger{seen: map[string]bool{}})

	require.NoError(t, c.HandleMessage(context.Background(), aws_pkg.Message{ID: "m1", Body: reviewBody}))
	require.NoError(t, c.HandleMessage(context.Background(), aws_pkg.Message{ID: "m1", Body: reviewBody}))

	assert.Len(t, applier.calls, 1)
}

func TestHandleMessage_MalformedAcked(t *testing.T) {
	applier := &fakeApplier{}
	c := newConsumer(applier, &memLedger{seen: map[string]bool{}})

	assert.NoError(t, c.HandleMessage(context.Background(), aws_pkg.Message{ID: "m1", Body: "not json"}))
	assert.NoError(t, c.HandleMessage(context.Background(), aws_pkg.Message{ID: "m2", Body: `{"rating":5}`}))
	assert.Empty(t, applier.calls)
}

func TestHandleMessage_NotFoundAcked(t *testing.T) {
	applier := &fakeApplier{err: services.NewNotFoundError("Order with ID ord-1 not found")}
	ledger := &memLedger{seen: map[string]bool{}}
	c := newConsumer(applier, ledger)

	err := c.HandleMessage(context.Background(), aws_pkg.Message{ID: "m1", Body: reviewBody})

	assert.NoError(t, err)
	assert.Empty(t, ledger.seen)
}

func TestHandleMessage_StoreErrorRedelivers(t *testing.T) {
	applier := &fakeApplier{err: services.NewInternalError(errors.New("mongo down"))}
	ledger := &memLedger{seen: map[string]bool{}}
	c := newConsumer(applier, ledger)

	err := c.HandleMessage(context.Background(), aws_pkg.Message{ID: "m1", Body: reviewBody})

	require.Error(t, err)
	assert.False(t, ledger.seen["m1"], "failed message must not be recorded")

	applier.err = nil
	require.NoError(t, c.HandleMessage(context.Background(), aws_pkg.Message{ID: "m1", Body: reviewBody}))
	assert.Len(t, applier.calls, 2)
	assert.True(t, ledger.seen["m1"])
}

func TestHandleMessage_RecordFailureDoesNotLoseReview(t *testing.T) {
	applier := &fakeApplier{err: services.NewInternalError(errors.New("mongo down"))}
	ledger := &memLedger{seen: map[string]bool{}, markErr: errors.New("throttled")}
	c := newConsumer(applier, ledger)

	// first delivery fails to store, the ledger is unavailable for writes
	require.Error(t, c.HandleMessage(context.Background(), aws_pkg.Message{ID: "m1", Body: reviewBody}))

	// the redelivery still reaches the store
	applier.err = nil
	require.NoError(t, c.HandleMessage(context.Background(), aws_pkg.Message{ID: "m1", Body: reviewBody}))
	assert.Len(t, applier.calls, 2)

	// an unrecorded success is applied again rather than dropped
	require.NoError(t, c.HandleMessage(context.Background(), aws_pkg.Message{ID: "m1", Body: reviewBody}))
	assert.Len(t, applier.calls, 3)
}

func TestHandleMessage_LedgerErrorRedelivers(t *testing.T) {
	applier := &fakeApplier{}
	c := newConsumer(applier, &memLedger{seen: map[string]bool{}, checkErr: errors.New("throttled")})

	err := c.HandleMessage(context.Background(), aws_pkg.Message{ID: "m1", Body: reviewBody})

	assert.Error(t, err)
	assert.Empty(t, applier.calls)
}

func TestStart_RunsHandlerAndStopsCleanly(t *testing.T) {
	applier := &fakeApplier{}
	poller := &fakePoller{messages: []aws_pkg.Message{{ID: "m1", Body: reviewBody}}}
	c := consumer.NewReviewConsumer(poller, applier, nil, nil, zap.NewNop())

	err := c.Start(context.Background())

	assert.NoError(t, err)
	assert.Len(t, applier.calls, 1)
	assert.Equal(t, []error{nil}, poller.results)
}
