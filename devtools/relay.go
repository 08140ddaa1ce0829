package devtools

import (
	"net/http"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/cellgraph/cellgraph"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Relay fans a bounded backlog of lifecycle events out to websocket
// subscribers: a new connection first receives the retained backlog
// (oldest first), then switches to receiving events live as Bridge pushes
// them — the "replay then live" contract spec.md's devtools module
// describes.
type Relay struct {
	backlog  *lru.Cache
	order    []string
	mu       sync.Mutex
	subs     map[*subscriber]struct{}
	upgrader websocket.Upgrader
}

type subscriber struct {
	conn *websocket.Conn
	out  chan cellgraph.Event
}

// NewRelay builds a Relay retaining at most backlogSize events (default
// 200 if <= 0).
func NewRelay(backlogSize int) *Relay {
	if backlogSize <= 0 {
		backlogSize = 200
	}
	cache, _ := lru.New(backlogSize)
	return &Relay{
		backlog: cache,
		subs:    make(map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (r *Relay) seed(ev cellgraph.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backlog.Add(ev.ID, ev)
	r.order = append(r.order, ev.ID)
}

func (r *Relay) push(ev cellgraph.Event) {
	r.mu.Lock()
	r.backlog.Add(ev.ID, ev)
	r.order = append(r.order, ev.ID)
	if len(r.order) > r.backlog.Len() {
		r.order = r.order[len(r.order)-r.backlog.Len():]
	}
	subs := make([]*subscriber, 0, len(r.subs))
	for s := range r.subs {
		subs = append(subs, s)
	}
	r.mu.Unlock()

	for _, s := range subs {
		select {
		case s.out <- ev:
		default: // slow subscriber drops a live event rather than blocking the runtime
		}
	}
}

// backlogSnapshot returns the retained events in push order.
func (r *Relay) backlogSnapshot() []cellgraph.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]cellgraph.Event, 0, len(r.order))
	for _, id := range r.order {
		if v, ok := r.backlog.Get(id); ok {
			out = append(out, v.(cellgraph.Event))
		}
	}
	return out
}

// ServeHTTP upgrades the request to a websocket connection, replays the
// current backlog, then streams live events until the connection closes.
func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := &subscriber{conn: conn, out: make(chan cellgraph.Event, 64)}

	for _, ev := range r.backlogSnapshot() {
		data, err := encodeMessage(Message{ID: ev.ID, Type: "event", Event: &ev})
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}

	r.mu.Lock()
	r.subs[sub] = struct{}{}
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.subs, sub)
		r.mu.Unlock()
	}()

	for ev := range sub.out {
		data, err := encodeMessage(Message{ID: uuid.NewString(), Type: "event", Event: &ev})
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
