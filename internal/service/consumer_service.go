package service

import (
	"context"
	"encoding/json"

	"github.com/akvekariya/AIChatBot/internal/dto"
	"github.com/akvekariya/AIChatBot/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// IConsumerService drains the utterance topic and feeds the memory store.
type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub        *gochannel.GoChannel
	topicName     string
	memoryService IMemoryService
	logger        logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	memoryService IMemoryService,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:        pubSub,
		topicName:     topicName,
		memoryService: memoryService,
		logger:        log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.RecordUtteranceMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("ConsumerService", "Failed to unmarshal utterance message", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // malformed payloads never become processable, drop them
		return
	}

	// RecordUserUtterance is best effort by contract, so there is nothing
	// retriable left to Nack for.
	cs.memoryService.RecordUserUtterance(ctx, payload.ChatId, payload.Text)
	msg.Ack()
}
