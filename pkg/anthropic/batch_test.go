package anthropic

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MessageResponse), args.Error(1)
}

func (m *mockClient) CreateBatch(ctx context.Context, req BatchRequest) (*BatchResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*BatchResponse), args.Error(1)
}

func (m *mockClient) GetBatch(ctx context.Context, batchID string) (*BatchResponse, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*BatchResponse), args.Error(1)
}

func (m *mockClient) GetBatchResults(ctx context.Context, batchID string) (BatchResultIterator, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(BatchResultIterator), args.Error(1)
}

// sliceIterator is a BatchResultIterator over a fixed slice.
type sliceIterator struct {
	items []BatchResultItem
	idx   int
	err   error
}

func (it *sliceIterator) Next() bool {
	if it.idx >= len(it.items) {
		return false
	}
	it.idx++
	return true
}

func (it *sliceIterator) Item() BatchResultItem { return it.items[it.idx-1] }
func (it *sliceIterator) Err() error            { return it.err }
func (it *sliceIterator) Close() error          { return nil }

func TestPollBatch_EndsAfterProgress(t *testing.T) {
	client := &mockClient{}
	client.On("GetBatch", mock.Anything, "batch-1").
		Return(&BatchResponse{ID: "batch-1", ProcessingStatus: "in_progress"}, nil).Once()
	client.On("GetBatch", mock.Anything, "batch-1").
		Return(&BatchResponse{ID: "batch-1", ProcessingStatus: "ended"}, nil).Once()

	batch, err := PollBatch(context.Background(), client, "batch-1",
		WithPollInterval(time.Millisecond), WithPollCap(2*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, "ended", batch.ProcessingStatus)
	client.AssertExpectations(t)
}

func TestPollBatch_Expired(t *testing.T) {
	client := &mockClient{}
	client.On("GetBatch", mock.Anything, "batch-2").
		Return(&BatchResponse{ID: "batch-2", ProcessingStatus: "expired"}, nil).Once()

	_, err := PollBatch(context.Background(), client, "batch-2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestCollectBatchResults_SkipsFailures(t *testing.T) {
	iter := &sliceIterator{items: []BatchResultItem{
		{CustomID: "a", Type: "succeeded", Message: &MessageResponse{Content: []ContentBlock{{Text: "ok"}}}},
		{CustomID: "b", Type: "errored"},
		{CustomID: "c", Type: "succeeded", Message: &MessageResponse{Content: []ContentBlock{{Text: "also ok"}}}},
	}}

	results, err := CollectBatchResults(iter)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, "ok", results["a"].Text())
	assert.NotContains(t, results, "b")
}

func TestCollectBatchResults_IteratorError(t *testing.T) {
	iter := &sliceIterator{err: eris.New("stream broke")}
	_, err := CollectBatchResults(iter)
	require.Error(t, err)
}

func TestMessageResponse_Text(t *testing.T) {
	var nilResp *MessageResponse
	assert.Empty(t, nilResp.Text())

	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: "first"},
		{Type: "text", Text: ""},
		{Type: "text", Text: "second"},
	}}
	assert.Equal(t, "first\nsecond", resp.Text())
}
