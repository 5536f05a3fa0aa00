package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultRedisChannel = "servicehub:realtime"

// restrictEvent marks a control envelope that narrows a room on every instance. It is never delivered to sockets.
const restrictEvent = "_restrict_room"

type restriction struct {
	UserIDs []uuid.UUID `json:"user_ids"`
}

// RedisBridge fans room events out across API instances. Publish writes the envelope
// to a Redis channel and Run replays every envelope on that channel into the local hub,
// so a frame reaches sockets on every instance, including the one that published it.
type RedisBridge struct {
	client  *redis.Client
	hub     *Hub
	channel string
	logger  *slog.Logger
}

func NewRedisBridge(client *redis.Client, hub *Hub, channel string, logger *slog.Logger) *RedisBridge {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBridge{
		client:  client,
		hub:     hub,
		channel: channel,
		logger:  logger,
	}
}

func (b *RedisBridge) Publish(ctx context.Context, room, event string, payload any) error {
	return b.publish(ctx, room, event, payload)
}

// RestrictRoom narrows room to the given users and admins on every instance, in order with published frames.
func (b *RedisBridge) RestrictRoom(ctx context.Context, room string, userIDs []uuid.UUID) error {
	return b.publish(ctx, room, restrictEvent, restriction{UserIDs: userIDs})
}

func (b *RedisBridge) publish(ctx context.Context, room, event string, payload any) error {
	env, err := NewEnvelope(room, event, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s to redis: %w", event, err)
	}
	return nil
}

// Run subscribes to the bridge channel and blocks until ctx is cancelled or the subscription closes.
func (b *RedisBridge) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}
	b.logger.Info("Realtime bridge subscribed", "channel", b.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.handleMessage(msg.Payload)
		}
	}
}

func (b *RedisBridge) handleMessage(payload string) {
	var env Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.logger.Warn("Discarding malformed realtime envelope", "error", err)
		return
	}
	if env.Room == "" || env.Event == "" {
		b.logger.Warn("Discarding realtime envelope without room or event")
		return
	}
	if env.Event == restrictEvent {
		var r restriction
		if err := json.Unmarshal(env.Payload, &r); err != nil {
			b.logger.Warn("Discarding malformed room restriction", "room", env.Room, "error", err)
			return
		}
		_ = b.hub.RestrictRoom(context.Background(), env.Room, r.UserIDs)
		return
	}
	b.hub.Deliver(env)
}
