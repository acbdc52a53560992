package stream

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

func RegisterRoutes(r fiber.Router, hub *Hub) {
	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		serve(c, hub, GlobalTopic)
	}))
	r.Get("/ws/:userID", websocket.New(func(c *websocket.Conn) {
		serve(c, hub, UserTopic(c.Params("userID")))
	}))
}

func serve(c *websocket.Conn, hub *Hub, topic string) {
	client := hub.Register(topic)
	defer hub.Unregister(client)

	done := make(chan struct{})
	go func() {
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
		close(done)
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
	hub.Unregister(client)
	<-done
}
