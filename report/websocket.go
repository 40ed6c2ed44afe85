package report

// This writer keeps the teacher's ahrsweb/room.go broadcast-room
// concurrency shape (a join/leave/forward select loop) but drops a record
// for a client that can't keep up rather than blocking, and adds two things room.go
// never had, because it broadcast one undifferentiated AHRS state blob
// to every client: a bounded replay buffer so a client that joins
// mid-run isn't staring at a blank screen until the next record, and
// per-client tag filtering (dump_update vs dump_correct, spec.md §6) so
// a dashboard only watching corrections isn't pushed every time update
// too.

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// historyDepth bounds how many past Records a newly-joined client is
// replayed before it starts receiving live ones.
const historyDepth = 64

// WebSocketWriter streams Records as JSON to any number of connected
// browser clients, each optionally subscribed to a subset of tags.
type WebSocketWriter struct {
	forward chan Record
	join    chan *wsClient
	leave   chan *wsClient
	clients map[*wsClient]bool
	history []Record
}

// NewWebSocketWriter returns a writer with its broadcast loop not yet
// started; call Run (typically in its own goroutine) before mounting it
// as an http.Handler.
func NewWebSocketWriter() *WebSocketWriter {
	return &WebSocketWriter{
		forward: make(chan Record),
		join:    make(chan *wsClient),
		leave:   make(chan *wsClient),
		clients: make(map[*wsClient]bool),
	}
}

// Run services join/leave/forward until the process exits; intended to
// run in its own goroutine alongside the fusion controller's Run.
func (w *WebSocketWriter) Run() {
	for {
		select {
		case c := <-w.join:
			w.clients[c] = true
			log.Println("report: websocket client joined")
			for _, rec := range w.history {
				w.sendTo(c, rec)
			}
		case c := <-w.leave:
			delete(w.clients, c)
			close(c.send)
			log.Println("report: websocket client left")
		case rec := <-w.forward:
			w.history = append(w.history, rec)
			if len(w.history) > historyDepth {
				w.history = w.history[len(w.history)-historyDepth:]
			}
			for c := range w.clients {
				w.sendTo(c, rec)
			}
		}
	}
}

// sendTo marshals rec and queues it for c if c's tag filter accepts it,
// dropping rather than blocking when c's send buffer is full.
func (w *WebSocketWriter) sendTo(c *wsClient, rec Record) {
	if !c.accepts(rec.Tag) {
		return
	}
	b, err := json.Marshal(rec)
	if err != nil {
		log.Println("report: marshal record:", err)
		return
	}
	select {
	case c.send <- b:
	default:
		log.Println("report: websocket client too slow, dropping record")
	}
}

// Write forwards r to every connected client whose tag filter accepts it.
func (w *WebSocketWriter) Write(r Record) {
	w.forward <- r
}

// Close is a no-op: the websocket room has no file handle to release, and
// outlives any single fusion run.
func (w *WebSocketWriter) Close() error { return nil }

const (
	socketBufferSize  = 1024
	messageBufferSize = 10
)

var upgrader = &websocket.Upgrader{ReadBufferSize: socketBufferSize, WriteBufferSize: socketBufferSize}

// ServeHTTP upgrades the connection to a websocket and registers a new
// client with the room, blocking until the client disconnects. A
// "?tags=MU,TU" query parameter restricts the client to those Record
// tags; omitted or empty means every tag.
func (w *WebSocketWriter) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	socket, err := upgrader.Upgrade(rw, req, nil)
	if err != nil {
		log.Println("report: websocket upgrade:", err)
		return
	}
	c := &wsClient{socket: socket, send: make(chan []byte, messageBufferSize), room: w, tags: parseTags(req.URL.Query().Get("tags"))}
	w.join <- c
	defer func() { w.leave <- c }()
	go c.write()
	c.read()
}

func parseTags(raw string) map[string]bool {
	if raw == "" {
		return nil
	}
	tags := make(map[string]bool)
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags[t] = true
		}
	}
	return tags
}

// wsClient is one connected browser, grounded on ahrsweb's client (send
// channel plus read/write pumps over the same socket), with a tag filter
// this repo's multi-tagged Record stream has no teacher counterpart for.
type wsClient struct {
	socket *websocket.Conn
	send   chan []byte
	room   *WebSocketWriter
	tags   map[string]bool // nil or empty: accept every tag
}

func (c *wsClient) accepts(tag string) bool {
	return len(c.tags) == 0 || c.tags[tag]
}

func (c *wsClient) write() {
	for msg := range c.send {
		if err := c.socket.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.socket.Close()
}

// read discards anything the browser sends; this stream is output-only,
// but the read pump must still run to notice disconnects.
func (c *wsClient) read() {
	for {
		if _, _, err := c.socket.ReadMessage(); err != nil {
			break
		}
	}
	c.socket.Close()
}
