package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/notifier"
	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/utils"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
	wsSendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSHandler struct {
	Bus *notifier.Notifier
}

func NewWSHandler(bus *notifier.Notifier) *WSHandler {
	return &WSHandler{Bus: bus}
}

// wsControl is what clients send over the socket to manage their
// per-asset subscriptions.
type wsControl struct {
	Type    string `json:"type"`
	AssetID string `json:"assetId"`
}

type wsClient struct {
	conn *websocket.Conn
	bus  *notifier.Notifier
	send chan []byte

	mu   sync.Mutex
	subs map[string]*notifier.Subscription

	once sync.Once
	done chan struct{}
}

// HandleWebSocket serves GET /ws?token=. The token is checked here
// rather than in the auth middleware because browsers cannot set an
// Authorization header on a websocket dial.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing token")
		return
	}
	claims, err := utils.ValidateJWT(token)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	c := &wsClient{
		conn: conn,
		bus:  h.Bus,
		send: make(chan []byte, wsSendBuffer),
		subs: make(map[string]*notifier.Subscription),
		done: make(chan struct{}),
	}

	log.Printf("websocket connected: user=%s", claims.UserID)

	// Every connection observes the global feeds. Per-asset topics are
	// opt-in via subscribe:asset messages.
	c.subscribe(notifier.TopicAssetCreated)
	c.subscribe(notifier.TopicAssetUpdated)

	c.enqueueJSON(map[string]string{"type": "connected", "user": claims.Name})

	go c.writePump()
	c.readPump()
}

func (c *wsClient) subscribe(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subs[topic]; ok {
		return
	}
	sub := c.bus.Subscribe(topic)
	c.subs[topic] = sub
	go c.forward(sub)
}

func (c *wsClient) unsubscribe(topic string) {
	c.mu.Lock()
	sub, ok := c.subs[topic]
	if ok {
		delete(c.subs, topic)
	}
	c.mu.Unlock()
	if ok {
		c.bus.Unsubscribe(sub)
	}
}

// forward drains one subscription into the shared send queue. If the
// queue is full the client is too slow to keep and the connection is
// shut down.
func (c *wsClient) forward(sub *notifier.Subscription) {
	for ev := range sub.Events() {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		select {
		case c.send <- data:
		case <-c.done:
			return
		default:
			c.shutdown()
			return
		}
	}
}

func (c *wsClient) enqueueJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *wsClient) shutdown() {
	c.once.Do(func() {
		close(c.done)
		c.mu.Lock()
		subs := c.subs
		c.subs = make(map[string]*notifier.Subscription)
		c.mu.Unlock()
		for _, sub := range subs {
			c.bus.Unsubscribe(sub)
		}
		c.conn.Close()
	})
}

func (c *wsClient) readPump() {
	defer c.shutdown()
	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket read error: %v", err)
			}
			return
		}

		var msg wsControl
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "subscribe:asset":
			if msg.AssetID != "" {
				c.subscribe(notifier.AssetTopic(msg.AssetID))
			}
		case "unsubscribe:asset":
			if msg.AssetID != "" {
				c.unsubscribe(notifier.AssetTopic(msg.AssetID))
			}
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
