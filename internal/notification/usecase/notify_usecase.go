package usecase

import (
	"context"
	"fmt"

	"fled-backend/internal/notification/domain"
	notifrepo "fled-backend/internal/notification/repository"
	schooldomain "fled-backend/internal/school/domain"
	schoolrepo "fled-backend/internal/school/repository"

	"github.com/rs/zerolog"
)

// notificationUsecase implements NotificationUsecase
type notificationUsecase struct {
	resolver   *TokenResolver
	dispatcher *Dispatcher
	purger     Purger
	documents  schoolrepo.DocumentRepository
	auditRepo  notifrepo.DispatchLogRepository
	logger     zerolog.Logger
}

// NewNotificationUsecase creates a new instance of notificationUsecase.
// auditRepo may be nil to disable the dispatch audit log.
func NewNotificationUsecase(resolver *TokenResolver, dispatcher *Dispatcher, purger Purger, documents schoolrepo.DocumentRepository, auditRepo notifrepo.DispatchLogRepository, logger zerolog.Logger) NotificationUsecase {
	return &notificationUsecase{
		resolver:   resolver,
		dispatcher: dispatcher,
		purger:     purger,
		documents:  documents,
		auditRepo:  auditRepo,
		logger:     logger.With().Str("component", "notifier").Logger(),
	}
}

func (u *notificationUsecase) NotifyTaskCreated(ctx context.Context, taskID string, task *schooldomain.Task) (domain.DispatchResult, error) {
	log := u.logger.With().Str("task_id", taskID).Logger()
	if task == nil || task.SectionID == "" {
		log.Info().Msg("task has no section, skipping")
		return domain.DispatchResult{}, nil
	}

	tokens, err := u.resolver.ResolveSectionTokens(ctx, task.SectionID)
	if err != nil {
		return domain.DispatchResult{}, err
	}
	if len(tokens) == 0 {
		log.Info().Str("section_id", task.SectionID).Msg("no tokens for section")
		return domain.DispatchResult{}, nil
	}

	result := u.dispatcher.Dispatch(ctx, TaskPayload(taskID, task), tokens)
	log.Info().Int("sent", result.Sent).Int("failed", result.Failed).Msg("task notification sent")
	u.record(ctx, domain.EventTypeTask, taskID, task.SectionID, len(tokens), result)
	return result, nil
}

func (u *notificationUsecase) NotifyMessageCreated(ctx context.Context, messageID string, msg *schooldomain.Message) (domain.DispatchResult, error) {
	log := u.logger.With().Str("message_id", messageID).Logger()
	if msg == nil {
		return domain.DispatchResult{}, nil
	}

	var (
		tokens []string
		err    error
	)
	switch {
	case msg.ToParentID != "":
		tokens, err = u.resolver.ResolveParentTokens(ctx, msg.ToParentID)
	case msg.SectionID != "":
		tokens, err = u.resolver.ResolveSectionTokens(ctx, msg.SectionID)
	default:
		studentIDs := msg.StudentIDs
		if len(studentIDs) == 0 && msg.StudentID != "" {
			studentIDs = []string{msg.StudentID}
		}
		tokens = u.resolver.ResolveTokens(ctx, studentIDs)
	}
	if err != nil {
		return domain.DispatchResult{}, err
	}
	if len(tokens) == 0 {
		log.Info().Msg("no recipients for message")
		return domain.DispatchResult{}, nil
	}

	result := u.dispatcher.Dispatch(ctx, MessagePayload(messageID, msg), tokens)
	log.Info().Int("sent", result.Sent).Int("failed", result.Failed).Msg("message notification sent")
	u.record(ctx, domain.EventTypeMessage, messageID, msg.SectionID, len(tokens), result)
	return result, nil
}

func (u *notificationUsecase) NotifyDocument(ctx context.Context, collection, docID string) (*NotifyResult, error) {
	switch collection {
	case schooldomain.CollectionMessages, schooldomain.CollectionAttendance, schooldomain.CollectionAttendanceSessions:
	default:
		return nil, ErrInvalidCollection
	}

	doc, err := u.documents.FindDocument(ctx, collection, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s/%s: %w", collection, docID, err)
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}

	studentIDs := doc.StudentIDs()
	if len(studentIDs) == 0 {
		return &NotifyResult{Message: "No student IDs found"}, nil
	}

	tokens := u.resolver.ResolveTokens(ctx, studentIDs)
	if len(tokens) == 0 {
		return &NotifyResult{Message: "No FCM tokens found for students"}, nil
	}

	result := u.dispatcher.Dispatch(ctx, DocumentPayload(doc), tokens)
	u.logger.Info().
		Str("collection", collection).
		Str("doc_id", docID).
		Int("sent", result.Sent).
		Int("failed", result.Failed).
		Msg("document notification sent")
	u.record(ctx, collection, docID, doc.String("sectionId"), len(tokens), result)

	return &NotifyResult{
		Sent:                 result.Sent,
		Failed:               result.Failed,
		TotalTokens:          len(tokens),
		InvalidTokensRemoved: len(result.InvalidTokens),
	}, nil
}

func (u *notificationUsecase) RemoveToken(ctx context.Context, token string) {
	if u.purger == nil || token == "" {
		return
	}
	u.purger.Purge(ctx, []string{token})
}

func (u *notificationUsecase) ListDispatches(ctx context.Context, eventType string, limit, offset int) ([]*domain.DispatchLog, int64, error) {
	if u.auditRepo == nil {
		return []*domain.DispatchLog{}, 0, nil
	}
	return u.auditRepo.FindRecent(ctx, eventType, limit, offset)
}

// record writes the audit row; failures are logged only.
func (u *notificationUsecase) record(ctx context.Context, eventType, eventID, sectionID string, total int, result domain.DispatchResult) {
	if u.auditRepo == nil {
		return
	}
	entry := &domain.DispatchLog{
		EventType:      eventType,
		EventID:        eventID,
		SectionID:      sectionID,
		TotalTokens:    total,
		Sent:           result.Sent,
		Failed:         result.Failed,
		InvalidRemoved: len(result.InvalidTokens),
	}
	if err := u.auditRepo.Create(context.WithoutCancel(ctx), entry); err != nil {
		u.logger.Warn().Err(err).Str("event_id", eventID).Msg("failed to write dispatch log")
	}
}
