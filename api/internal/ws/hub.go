package ws

import "sync"

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

const (
	broadcastBuffer  = 64
	subscriberBuffer = 16
)

// Hub fans events out to subscribers grouped by topic. The interest feed uses
// the owning agent's ID as topic. Each subscriber is written from its own
// goroutine; one that falls subscriberBuffer events behind is dropped.
type Hub struct {
	clients   map[string]map[Subscriber]*outbox
	register  chan subscription
	unreg     chan subscription
	broadcast chan message
	count     chan countRequest
	done      chan struct{}
	closeOnce sync.Once
}

type message struct {
	topic   string
	payload []byte
}

type outbox struct {
	queue chan []byte
	stop  chan struct{}
}

type subscription struct {
	topic  string
	client Subscriber
}

type countRequest struct {
	topic string
	reply chan int
}

// NewHub creates an initialized Hub and starts its loop.
func NewHub() *Hub {
	h := &Hub{
		clients:   make(map[string]map[Subscriber]*outbox),
		register:  make(chan subscription),
		unreg:     make(chan subscription),
		broadcast: make(chan message, broadcastBuffer),
		count:     make(chan countRequest),
		done:      make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			for _, clients := range h.clients {
				for c, out := range clients {
					close(out.stop)
					c.Close()
				}
			}
			h.clients = nil
			return
		case sub := <-h.register:
			if _, ok := h.clients[sub.topic]; !ok {
				h.clients[sub.topic] = make(map[Subscriber]*outbox)
			}
			if _, ok := h.clients[sub.topic][sub.client]; ok {
				continue
			}
			out := &outbox{queue: make(chan []byte, subscriberBuffer), stop: make(chan struct{})}
			h.clients[sub.topic][sub.client] = out
			go h.pump(sub, out)
		case sub := <-h.unreg:
			h.remove(sub.topic, sub.client)
		case msg := <-h.broadcast:
			for c, out := range h.clients[msg.topic] {
				select {
				case out.queue <- msg.payload:
				default:
					c.Close()
					h.remove(msg.topic, c)
				}
			}
		case req := <-h.count:
			req.reply <- len(h.clients[req.topic])
		}
	}
}

func (h *Hub) remove(topic string, client Subscriber) {
	clients, ok := h.clients[topic]
	if !ok {
		return
	}
	if out, ok := clients[client]; ok {
		close(out.stop)
		delete(clients, client)
	}
	if len(clients) == 0 {
		delete(h.clients, topic)
	}
}

// pump delivers queued payloads to one subscriber until it fails or is removed.
func (h *Hub) pump(sub subscription, out *outbox) {
	for {
		select {
		case <-out.stop:
			return
		case payload := <-out.queue:
			if err := sub.client.Send(payload); err != nil {
				sub.client.Close()
				h.Unregister(sub.topic, sub.client)
				return
			}
		}
	}
}

// Register adds a client to a topic.
func (h *Hub) Register(topic string, client Subscriber) {
	select {
	case h.register <- subscription{topic: topic, client: client}:
	case <-h.done:
		client.Close()
	}
}

// Unregister removes a client.
func (h *Hub) Unregister(topic string, client Subscriber) {
	select {
	case h.unreg <- subscription{topic: topic, client: client}:
	case <-h.done:
	}
}

// Broadcast queues payload for every subscriber of topic. It never blocks;
// when the queue is full the event is dropped and false is returned.
func (h *Hub) Broadcast(topic string, payload []byte) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.broadcast <- message{topic: topic, payload: payload}:
		return true
	default:
		return false
	}
}

// Subscribers returns the number of clients registered on topic.
func (h *Hub) Subscribers(topic string) int {
	reply := make(chan int, 1)
	select {
	case h.count <- countRequest{topic: topic, reply: reply}:
		return <-reply
	case <-h.done:
		return 0
	}
}

// Close stops the hub and closes every subscriber.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}
