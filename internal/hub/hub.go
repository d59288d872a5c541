package hub

import (
	"encoding/json"
	"sync"

	"github.com/fundlink/chat-service/internal/config"
	"github.com/fundlink/chat-service/internal/domain"
	"github.com/fundlink/chat-service/pkg/log"
)

// Hub owns the connection registry and channel membership. A channel is
// either a chat room (canonical room key) or a per-user personal channel.
// The hub is the single owner of this state; components that need to reach
// subscribers go through Broadcast/SendToUser rather than sharing the maps.
type Hub struct {
	clients    map[string]*Client            // clientID -> client
	channels   map[string]map[string]*Client // channel key -> clientID -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *channelMessage
	mu         sync.RWMutex
	config     config.WebSocketConfig
}

type channelMessage struct {
	Channel string
	Payload []byte
	Exclude string // client ID to exclude, empty for none
}

func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		channels:   make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *channelMessage, 256),
		config:     cfg,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldClientID, client.ID).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				for key, members := range h.channels {
					delete(members, client.ID)
					if len(members) == 0 {
						delete(h.channels, key)
					}
				}
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldClientID, client.ID).Msg("client unregistered")

		case msg := <-h.broadcast:
			h.mu.RLock()
			if members, ok := h.channels[msg.Channel]; ok {
				for clientID, client := range members {
					if clientID == msg.Exclude {
						continue
					}
					select {
					case client.Send <- msg.Payload:
					default:
						go h.removeClient(client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Join subscribes a client to a channel. A client may be a member of several
// room channels at once, one per counterpart/proposal pair.
func (h *Hub) Join(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.channels[channel]; !ok {
		h.channels[channel] = make(map[string]*Client)
	}
	h.channels[channel][client.ID] = client
	l := log.L()
	l.Info().Str(log.FieldClientID, client.ID).Str("channel", channel).Msg("client joined channel")
}

func (h *Hub) Leave(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.channels[channel]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.channels, channel)
		}
	}
	l := log.L()
	l.Info().Str(log.FieldClientID, client.ID).Str("channel", channel).Msg("client left channel")
}

// Broadcast fans an event out to every connection subscribed to a channel.
// Fan-out itself never blocks; a consumer whose send buffer is full is
// dropped from the hub.
func (h *Hub) Broadcast(channel string, event interface{}, exclude string) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.broadcast <- &channelMessage{
		Channel: channel,
		Payload: data,
		Exclude: exclude,
	}
	return nil
}

// SendToUser pushes an event to every live connection on a user's personal
// channel. Returns false when the user has no connection; the caller treats
// that as "deliver later via the pull path", not an error.
func (h *Hub) SendToUser(userID int64, event interface{}) bool {
	data, err := json.Marshal(event)
	if err != nil {
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	members, ok := h.channels[domain.PersonalChannel(userID)]
	if !ok || len(members) == 0 {
		return false
	}
	for _, client := range members {
		select {
		case client.Send <- data:
		default:
		}
	}
	return true
}

// ClientCount reports how many connections are registered.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ChannelClientCount reports how many connections are subscribed to a channel.
func (h *Hub) ChannelClientCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if members, ok := h.channels[channel]; ok {
		return len(members)
	}
	return 0
}

func (h *Hub) removeClient(client *Client) {
	h.unregister <- client
}
