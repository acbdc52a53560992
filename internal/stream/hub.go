// Package stream pushes feed change notifications to websocket clients.
// Events fan out through Redis pub/sub so every API instance sees them.
package stream

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/nephh/twitter-clone/internal/logs"
	"github.com/nephh/twitter-clone/internal/social"

	"github.com/redis/go-redis/v9"
)

const (
	redisChannel = "feed:events"
	// GlobalTopic receives every event.
	GlobalTopic = "global"
)

var log = logs.Get("stream")

type Hub struct {
	redis   *redis.Client
	pubsub  *redis.PubSub
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	Topic string
	Send  chan []byte
}

// NewHub starts the Redis subscription when a client is given. Without Redis,
// or when subscribing fails, events are delivered to local clients only.
func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		clients: map[string]map[*Client]struct{}{},
	}
	if redisClient == nil {
		return h
	}

	ctx := context.Background()
	pubsub := redisClient.Subscribe(ctx, redisChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		log.Warning("redis subscribe failed, delivering locally: %v", err)
		_ = pubsub.Close()
		return h
	}
	h.redis = redisClient
	h.pubsub = pubsub
	go h.subscribeRedis()
	return h
}

// UserTopic is the topic carrying events caused by userID.
func UserTopic(userID string) string {
	return "user:" + userID
}

func (h *Hub) Register(topic string) *Client {
	client := &Client{
		Topic: topic,
		Send:  make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[topic] == nil {
		h.clients[topic] = map[*Client]struct{}{}
	}
	h.clients[topic][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if topicClients, ok := h.clients[client.Topic]; ok {
		if _, ok := topicClients[client]; !ok {
			return
		}
		delete(topicClients, client)
		if len(topicClients) == 0 {
			delete(h.clients, client.Topic)
		}
		close(client.Send)
	}
}

// Publish implements social.Publisher. Delivery is best effort: slow clients
// drop messages and Redis errors are logged.
func (h *Hub) Publish(ctx context.Context, event social.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error("encode event: %v", err)
		return
	}

	if h.redis == nil {
		h.deliver(event, payload)
		return
	}
	if err := h.redis.Publish(ctx, redisChannel, payload).Err(); err != nil {
		log.Error("redis publish error: %v", err)
		h.deliver(event, payload)
	}
}

// Close stops the Redis subscription.
func (h *Hub) Close() error {
	if h.pubsub == nil {
		return nil
	}
	return h.pubsub.Close()
}

func (h *Hub) deliver(event social.Event, payload []byte) {
	topics := []string{GlobalTopic}
	if event.UserID != "" {
		topics = append(topics, UserTopic(event.UserID))
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, topic := range topics {
		for client := range h.clients[topic] {
			select {
			case client.Send <- payload:
			default:
			}
		}
	}
}

func (h *Hub) subscribeRedis() {
	for msg := range h.pubsub.Channel() {
		var event social.Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Warning("dropping malformed event: %v", err)
			continue
		}
		h.deliver(event, []byte(msg.Payload))
	}
}

var _ social.Publisher = (*Hub)(nil)
