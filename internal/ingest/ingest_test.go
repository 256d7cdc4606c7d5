package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/valuablehost/hostpulse/internal/evaluation"
	"github.com/valuablehost/hostpulse/internal/host"
	"github.com/valuablehost/hostpulse/internal/models"
)

type fakeStore struct {
	appended  []storedEval
	appendErr error
	nextID    int64
}

type storedEval struct {
	hostID  int64
	rating  int
	comment *string
	phone   string
}

func (f *fakeStore) Append(_ context.Context, hostID int64, rating int, comment *string, phone string, _ time.Time) (int64, error) {
	if f.appendErr != nil {
		return 0, f.appendErr
	}
	f.appended = append(f.appended, storedEval{hostID, rating, comment, phone})
	f.nextID++
	return f.nextID, nil
}

type fakePending struct {
	request    *models.PendingRequest
	resolveErr error
	consumed   []int64
}

func (f *fakePending) ResolvePending(_ context.Context, _ string, _ time.Time) (*models.PendingRequest, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return f.request, nil
}

func (f *fakePending) ConsumePending(_ context.Context, requestID int64, _ time.Time) error {
	f.consumed = append(f.consumed, requestID)
	return nil
}

func pendingFor(hostID int64) *fakePending {
	return &fakePending{request: &models.PendingRequest{ID: 7, HostID: hostID, CustomerPhone: "+4512345678"}}
}

func TestParseMessage(t *testing.T) {
	tests := []struct {
		body        string
		wantRating  int
		wantComment string
		wantOK      bool
	}{
		{"5 Great!", 5, "Great!", true},
		{"1", 1, "", true},
		{"  4   virkelig fint  ", 4, "virkelig fint", true},
		{"3Det var okay", 3, "Det var okay", true},
		{"abc", 0, "", false},
		{"", 0, "", false},
		{"   ", 0, "", false},
		{"6 too high", 0, "", false},
		{"0 too low", 0, "", false},
		{"-1 nope", 0, "", false},
		{"55", 5, "5", true},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			rating, comment, ok := ParseMessage(tt.body)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantRating, rating)
			if tt.wantComment == "" {
				assert.Nil(t, comment)
			} else {
				assert.NotNil(t, comment)
				assert.Equal(t, tt.wantComment, *comment)
			}
		})
	}
}

func TestHandleInbound_StoresAndAcknowledges(t *testing.T) {
	store := &fakeStore{}
	pending := pendingFor(42)
	svc := NewService(store, pending)

	result := svc.HandleInbound(context.Background(), "+4512345678", "5 Great!", time.Now())

	assert.Equal(t, StateAcknowledged, result.State)
	assert.Equal(t, 5, result.Rating)
	assert.Equal(t, int64(42), result.HostID)
	assert.False(t, result.Duplicate)
	assert.Contains(t, result.Reply, "Tusind tak")
	assert.Contains(t, result.Reply, "5-stjerner")

	assert.Len(t, store.appended, 1)
	assert.Equal(t, int64(42), store.appended[0].hostID)
	assert.Equal(t, "Great!", *store.appended[0].comment)
	assert.Equal(t, []int64{7}, pending.consumed)
}

func TestHandleInbound_LowRatingTone(t *testing.T) {
	svc := NewService(&fakeStore{}, pendingFor(1))

	result := svc.HandleInbound(context.Background(), "+4512345678", "2 ikke godt", time.Now())

	assert.Equal(t, StateAcknowledged, result.State)
	assert.NotContains(t, result.Reply, "Tusind tak")
	assert.Contains(t, result.Reply, "feedback")
}

func TestHandleInbound_RejectsUnparseableBody(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, pendingFor(1))

	result := svc.HandleInbound(context.Background(), "+4512345678", "abc", time.Now())

	assert.Equal(t, StateRejected, result.State)
	assert.Contains(t, result.Reply, "1-5")
	assert.Empty(t, store.appended)
}

func TestHandleInbound_EmptyBodyPromptsFormat(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, pendingFor(1))

	result := svc.HandleInbound(context.Background(), "+4512345678", "   ", time.Now())

	assert.Equal(t, StateRejected, result.State)
	assert.Contains(t, result.Reply, "Eksempel")
	assert.Empty(t, store.appended)
}

func TestHandleInbound_NoPendingRequest(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, &fakePending{resolveErr: host.ErrNoPendingRequest})

	result := svc.HandleInbound(context.Background(), "+4512345678", "5 Great!", time.Now())

	assert.Equal(t, StateRejected, result.State)
	assert.NotEmpty(t, result.Reply)
	assert.Empty(t, store.appended)
}

func TestHandleInbound_DuplicateIsSuccessWithNotice(t *testing.T) {
	store := &fakeStore{appendErr: evaluation.ErrDuplicate}
	pending := pendingFor(42)
	svc := NewService(store, pending)

	result := svc.HandleInbound(context.Background(), "+4512345678", "5 Great!", time.Now())

	assert.Equal(t, StateAcknowledged, result.State)
	assert.True(t, result.Duplicate)
	assert.NoError(t, result.Err)
	assert.Contains(t, result.Reply, "Tusind tak")
	assert.Empty(t, store.appended)
	assert.Empty(t, pending.consumed)
}

func TestHandleInbound_StoreFailureStillReplies(t *testing.T) {
	store := &fakeStore{appendErr: evaluation.ErrStoreUnavailable}
	svc := NewService(store, pendingFor(42))

	result := svc.HandleInbound(context.Background(), "+4512345678", "5 Great!", time.Now())

	assert.Equal(t, StateRejected, result.State)
	assert.ErrorIs(t, result.Err, ErrIngestion)
	assert.Equal(t, "Beklager, der skete en fejl. Prøv igen senere.", result.Reply)
}

func TestHandleInbound_SanitizesComment(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, pendingFor(1))

	result := svc.HandleInbound(context.Background(), "+4512345678", "5 <script>alert(1)</script> fint", time.Now())

	assert.Equal(t, StateAcknowledged, result.State)
	assert.NotNil(t, result.Comment)
	assert.NotContains(t, *result.Comment, "<")
	assert.NotContains(t, *result.Comment, ">")
	assert.Contains(t, *result.Comment, "fint")
}

func TestHandleInbound_CapsCommentLength(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, pendingFor(1))

	long := "5 " + strings.Repeat("æ", 1500)
	result := svc.HandleInbound(context.Background(), "+4512345678", long, time.Now())

	assert.Equal(t, StateAcknowledged, result.State)
	assert.NotNil(t, result.Comment)
	assert.Equal(t, evaluation.MaxCommentLen, len([]rune(*result.Comment)))
}
