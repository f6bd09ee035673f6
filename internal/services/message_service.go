package services

import (
	"context"
	"fmt"

	"github.com/kuberan/ledgersync/internal/models"
	"github.com/kuberan/ledgersync/internal/store"
)

// messageService reconciles in-app messages.
type messageService struct {
	sy *Syncer
}

// NewMessageService creates a new MessageServicer.
func NewMessageService(sy *Syncer) MessageServicer {
	return &messageService{sy: sy}
}

// RefreshMessages fetches every message and evicts the rest.
func (s *messageService) RefreshMessages(ctx context.Context) error {
	_, err := reconcile(ctx, s.sy, s.sy.store.Messages, fetch{
		family: "messages",
		path:   pathMessages,
		evict:  true,
	})
	return err
}

// RefreshUnreadMessages fetches unread messages. Only cached unread messages
// are candidates for eviction; read ones are left alone.
func (s *messageService) RefreshUnreadMessages(ctx context.Context) error {
	_, err := reconcile(ctx, s.sy, s.sy.store.Messages, fetch{
		family: "messages",
		path:   pathUnreadMessages,
		evict:  true,
		scopes: []store.Scope{store.UnreadMessages()},
	})
	return err
}

func (s *messageService) RefreshMessage(ctx context.Context, id int64) error {
	_, err := fetchOne(ctx, s.sy, s.sy.store.Messages, "messages", fmt.Sprintf("%s/%d", pathMessages, id))
	return err
}

// UpdateMessage marks a message read or interacted on the host and caches the
// result.
func (s *messageService) UpdateMessage(ctx context.Context, id int64, update models.MessageUpdate) (*models.Message, error) {
	var msg models.Message
	if err := s.sy.client.Put(ctx, fmt.Sprintf("%s/%d", pathMessages, id), update, &msg); err != nil {
		return nil, err
	}
	if err := s.sy.store.Messages.Insert(ctx, msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *messageService) Messages(ctx context.Context, filter MessageFilter) *store.Live[[]models.Message] {
	return s.sy.store.Messages.Load(ctx, store.MessagesFilter(filter.Types, filter.Read))
}

func (s *messageService) Message(ctx context.Context, id int64) *store.Live[*models.Message] {
	return s.sy.store.Messages.LoadByID(ctx, id)
}
