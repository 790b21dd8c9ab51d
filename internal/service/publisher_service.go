package service

import (
	"context"
	"encoding/json"

	"github.com/akvekariya/AIChatBot/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// IPublisherService hands user utterances to the in-process extraction
// pipeline. Publishing is fire-and-forget from the caller's point of view.
type IPublisherService interface {
	PublishUtterance(ctx context.Context, chatId uuid.UUID, text string) error
}

type publisherService struct {
	topicName string
	pubSub    *gochannel.GoChannel
}

func NewPublisherService(topicName string, pubSub *gochannel.GoChannel) IPublisherService {
	return &publisherService{
		topicName: topicName,
		pubSub:    pubSub,
	}
}

func (ps *publisherService) PublishUtterance(ctx context.Context, chatId uuid.UUID, text string) error {
	payload, err := json.Marshal(dto.RecordUtteranceMessage{
		ChatId: chatId,
		Text:   text,
	})
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	return ps.pubSub.Publish(ps.topicName, msg)
}
