package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"clipstream/internal/queue"
	"clipstream/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 45 * time.Second
)

// SubscribeHandler streams full queue snapshots over a websocket. Every state
// change produces one frame carrying the entire task list.
type SubscribeHandler struct {
	queue *queue.Queue
	log   *logger.Logger
}

func NewSubscribeHandler(q *queue.Queue, log *logger.Logger) *SubscribeHandler {
	return &SubscribeHandler{queue: q, log: log}
}

func (h *SubscribeHandler) Connect(c *gin.Context) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Buffered so a slow socket never blocks the queue's notify path; when
	// the buffer is full the oldest frame is dropped, the next one carries
	// the complete state anyway.
	frames := make(chan []queue.Snapshot, 16)
	unsubscribe := h.queue.Subscribe(func(snaps []queue.Snapshot) {
		select {
		case frames <- snaps:
		default:
			select {
			case <-frames:
			default:
			}
			select {
			case frames <- snaps:
			default:
			}
		}
	})
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pinger := time.NewTicker(pingPeriod)
	defer pinger.Stop()

	for {
		select {
		case <-done:
			return
		case snaps := <-frames:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snaps); err != nil {
				return
			}
		case <-pinger.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
