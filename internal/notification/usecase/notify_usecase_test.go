package usecase

import (
	"context"
	"testing"

	"fled-backend/internal/notification/domain"
	notifrepo "fled-backend/internal/notification/repository"
	schooldomain "fled-backend/internal/school/domain"
	schoolrepo "fled-backend/internal/school/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notifyHarness struct {
	store  *schoolrepo.MemoryStore
	sender *fakeSender
	audit  notifrepo.DispatchLogRepository
	uc     NotificationUsecase
}

func newNotifyHarness() *notifyHarness {
	store := schoolrepo.NewMemoryStore()
	sender := &fakeSender{codes: map[string]domain.ErrorCode{}}
	audit := notifrepo.NewMemoryDispatchLogRepository(0)
	sanitizer := newMemorySanitizer(store)
	uc := NewNotificationUsecase(
		newMemoryResolver(store),
		NewDispatcher(sender, sanitizer, 0, zerolog.Nop()),
		sanitizer,
		schoolrepo.NewMemoryDocumentRepository(store),
		audit,
		zerolog.Nop(),
	)
	return &notifyHarness{store: store, sender: sender, audit: audit, uc: uc}
}

// seedSection puts two students of sec-1 whose parents own one token each.
func (h *notifyHarness) seedSection() {
	h.store.PutParent(canonicalParent("ana@school.org", "tok-ana"))
	h.store.PutParent(canonicalParent("ben@school.org", "tok-ben"))
	h.store.PutStudent(schooldomain.Student{ID: "st1", SectionID: "sec-1", ParentEmail: "ana@school.org"})
	h.store.PutStudent(schooldomain.Student{ID: "st2", SectionID: "sec-1", ParentEmail: "ben@school.org"})
}

func TestNotifyTaskCreatedReachesSection(t *testing.T) {
	h := newNotifyHarness()
	h.seedSection()

	task := &schooldomain.Task{Title: "Read ch. 3", Type: "Homework", Deadline: "2025-03-10", SectionID: "sec-1"}
	result, err := h.uc.NotifyTaskCreated(context.Background(), "task-1", task)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Sent)
	require.Len(t, h.sender.batches, 1)
	assert.ElementsMatch(t, []string{"tok-ana", "tok-ben"}, h.sender.batches[0])
	assert.Equal(t, "New Homework", h.sender.payloads[0].Title)

	logs, total, err := h.audit.FindRecent(context.Background(), domain.EventTypeTask, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "task-1", logs[0].EventID)
	assert.Equal(t, 2, logs[0].TotalTokens)
}

func TestNotifyTaskWithoutSectionSendsNothing(t *testing.T) {
	h := newNotifyHarness()
	h.seedSection()

	result, err := h.uc.NotifyTaskCreated(context.Background(), "task-2", &schooldomain.Task{Title: "Orphan"})
	require.NoError(t, err)
	assert.Zero(t, result.Sent)
	assert.Empty(t, h.sender.batches)
}

func TestNotifyMessageCreated(t *testing.T) {
	h := newNotifyHarness()
	h.seedSection()
	ana := canonicalParent("ana@school.org")

	direct, err := h.uc.NotifyMessageCreated(context.Background(), "m1", &schooldomain.Message{ToParentID: ana.ID, SectionID: "sec-1", Content: "See me"})
	require.NoError(t, err)
	assert.Equal(t, 1, direct.Sent)
	assert.Equal(t, []string{"tok-ana"}, h.sender.batches[0])

	section, err := h.uc.NotifyMessageCreated(context.Background(), "m2", &schooldomain.Message{SectionID: "sec-1", Content: "Picture day"})
	require.NoError(t, err)
	assert.Equal(t, 2, section.Sent)
	assert.Equal(t, "New announcement", h.sender.payloads[1].Title)
}

func TestNotifyDocument(t *testing.T) {
	h := newNotifyHarness()
	h.seedSection()
	h.store.PutDocument("messages", "no-students", map[string]interface{}{"content": "hi"})
	h.store.PutDocument("messages", "no-tokens", map[string]interface{}{"studentIds": []interface{}{"ghost"}})
	h.store.PutDocument("attendance", "att-1", map[string]interface{}{"studentId": "st1", "status": "present"})
	h.store.PutDocument("messages", "msg-1", map[string]interface{}{"studentIds": []interface{}{"st1", "st2"}, "content": "Trip"})
	h.sender.codes["tok-ben"] = domain.ErrorCodeUnregistered

	tests := []struct {
		name       string
		collection string
		docID      string
		wantErr    error
		want       NotifyResult
	}{
		{name: "invalid collection", collection: "students", docID: "st1", wantErr: ErrInvalidCollection},
		{name: "missing document", collection: "messages", docID: "nope", wantErr: ErrDocumentNotFound},
		{name: "no student ids", collection: "messages", docID: "no-students", want: NotifyResult{Message: "No student IDs found"}},
		{name: "no tokens", collection: "messages", docID: "no-tokens", want: NotifyResult{Message: "No FCM tokens found for students"}},
		{name: "single student attendance", collection: "attendance", docID: "att-1", want: NotifyResult{Sent: 1, TotalTokens: 1}},
		{name: "stale token removed", collection: "messages", docID: "msg-1", want: NotifyResult{Sent: 1, Failed: 1, TotalTokens: 2, InvalidTokensRemoved: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.uc.NotifyDocument(context.Background(), tt.collection, tt.docID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestRemoveToken(t *testing.T) {
	h := newNotifyHarness()
	h.store.PutUser(schooldomain.User{ID: "u1", FCMToken: "old"})
	h.store.PutDevice(schooldomain.Device{ID: "d1", Path: "users/u1/devices/d1", Token: "old"})

	h.uc.RemoveToken(context.Background(), "old")

	u, _ := h.store.User("u1")
	assert.Empty(t, u.FCMToken)
	assert.Empty(t, h.store.Devices())
}

func TestListDispatchesWithoutAuditLog(t *testing.T) {
	store := schoolrepo.NewMemoryStore()
	sender := &fakeSender{}
	uc := NewNotificationUsecase(
		newMemoryResolver(store),
		NewDispatcher(sender, nil, 0, zerolog.Nop()),
		nil,
		schoolrepo.NewMemoryDocumentRepository(store),
		nil,
		zerolog.Nop(),
	)
	store.PutParent(canonicalParent("ana@school.org", "tok-ana"))
	store.PutStudent(schooldomain.Student{ID: "st1", SectionID: "sec-1", ParentEmail: "ana@school.org"})

	result, err := uc.NotifyTaskCreated(context.Background(), "task-1", &schooldomain.Task{Title: "Quiz", SectionID: "sec-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)

	logs, total, err := uc.ListDispatches(context.Background(), "", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.Zero(t, total)
}
