package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"fled-backend/internal/notification/usecase"
	schooldomain "fled-backend/internal/school/domain"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

const (
	ackDeadline = 60 * time.Second

	// seenLimit bounds the redelivery filter; it is reset when full.
	seenLimit = 10000
)

// ErrMalformedEvent is returned for payloads that can never be processed
var ErrMalformedEvent = errors.New("malformed document event")

// DocumentEvent is a document-created notification
type DocumentEvent struct {
	Collection string          `json:"collection"`
	DocID      string          `json:"docId"`
	Data       json.RawMessage `json:"data"`
}

type taskData struct {
	Title       string `json:"title"`
	Type        string `json:"type"`
	Deadline    string `json:"deadline"`
	Description string `json:"description"`
	SectionID   string `json:"sectionId"`
	OwnerUID    string `json:"ownerUid"`
}

type messageData struct {
	FromTeacherID string   `json:"fromTeacherId"`
	ToParentID    string   `json:"toParentId"`
	SectionID     string   `json:"sectionId"`
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	StudentIDs    []string `json:"studentIds"`
	StudentID     string   `json:"studentId"`
	OwnerUID      string   `json:"ownerUid"`
}

// Service consumes document-created events and fans them out as push
// notifications.
type Service struct {
	pubsubClient *pubsub.Client
	notifier     usecase.NotificationUsecase
	topicName    string
	subName      string
	logger       zerolog.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewService creates a Pub/Sub backed Service. An empty subName defaults to
// topicName + "-sub".
func NewService(ctx context.Context, projectID, topicName, subName, credentialsFile string, notifier usecase.NotificationUsecase, logger zerolog.Logger) (*Service, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	s := newService(notifier, logger)
	s.pubsubClient = client
	s.topicName = topicName
	s.subName = subName
	if s.subName == "" {
		s.subName = topicName + "-sub"
	}
	return s, nil
}

func newService(notifier usecase.NotificationUsecase, logger zerolog.Logger) *Service {
	return &Service{
		notifier: notifier,
		logger:   logger.With().Str("component", "pubsub").Logger(),
		seen:     make(map[string]struct{}),
	}
}

// Start blocks receiving events until ctx is cancelled. Every message is
// acked: handler failures are logged, never redelivered.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info().Str("topic", s.topicName).Str("subscription", s.subName).Msg("starting event trigger")

	sub, err := s.ensureSubscription(ctx)
	if err != nil {
		return err
	}

	s.logger.Info().Str("subscription", s.subName).Msg("listening for events")
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if err := s.HandleMessage(ctx, msg.Data); err != nil {
			s.logger.Error().Err(err).Str("message_id", msg.ID).Msg("event handling failed")
		}
		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("error receiving messages: %w", err)
	}
	return nil
}

func (s *Service) ensureSubscription(ctx context.Context) (*pubsub.Subscription, error) {
	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("error checking subscription existence: %w", err)
	}
	if exists {
		return sub, nil
	}

	topic := s.pubsubClient.Topic(s.topicName)
	topicExists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("error checking topic existence: %w", err)
	}
	if !topicExists {
		return nil, fmt.Errorf("topic %s does not exist, cannot create subscription", s.topicName)
	}

	sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
		Topic:       topic,
		AckDeadline: ackDeadline,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	s.logger.Info().Str("subscription", s.subName).Msg("created subscription")
	return sub, nil
}

// Close releases the Pub/Sub client
func (s *Service) Close() error {
	if s.pubsubClient == nil {
		return nil
	}
	return s.pubsubClient.Close()
}

// HandleMessage processes one raw event payload.
func (s *Service) HandleMessage(ctx context.Context, data []byte) error {
	var event DocumentEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if event.Collection == "" || event.DocID == "" {
		return fmt.Errorf("%w: missing collection or docId", ErrMalformedEvent)
	}

	log := s.logger.With().Str("collection", event.Collection).Str("doc_id", event.DocID).Logger()

	switch event.Collection {
	case schooldomain.CollectionTasks, schooldomain.CollectionMessages:
	default:
		log.Debug().Msg("ignoring event for unhandled collection")
		return nil
	}

	if s.duplicate(event.Collection + "/" + event.DocID) {
		log.Info().Msg("skipping duplicate event")
		return nil
	}

	switch event.Collection {
	case schooldomain.CollectionTasks:
		var d taskData
		if err := decodeData(event.Data, &d); err != nil {
			return err
		}
		task := &schooldomain.Task{
			ID:          event.DocID,
			Title:       d.Title,
			Type:        d.Type,
			Deadline:    d.Deadline,
			Description: d.Description,
			SectionID:   d.SectionID,
			OwnerUID:    d.OwnerUID,
		}
		_, err := s.notifier.NotifyTaskCreated(ctx, event.DocID, task)
		return err

	default:
		var d messageData
		if err := decodeData(event.Data, &d); err != nil {
			return err
		}
		msg := &schooldomain.Message{
			ID:            event.DocID,
			FromTeacherID: d.FromTeacherID,
			ToParentID:    d.ToParentID,
			SectionID:     d.SectionID,
			Title:         d.Title,
			Content:       d.Content,
			StudentIDs:    d.StudentIDs,
			StudentID:     d.StudentID,
			OwnerUID:      d.OwnerUID,
		}
		_, err := s.notifier.NotifyMessageCreated(ctx, event.DocID, msg)
		return err
	}
}

func decodeData(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return nil
}

// duplicate records key and reports whether it was already seen.
func (s *Service) duplicate(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return true
	}
	if len(s.seen) >= seenLimit {
		s.seen = make(map[string]struct{})
	}
	s.seen[key] = struct{}{}
	return false
}
