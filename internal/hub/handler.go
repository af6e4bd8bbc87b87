package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"carechat/backend/internal/domain"
	"carechat/backend/internal/identity"
	"carechat/backend/internal/service"
)

// Gateway upgrades HTTP requests to websocket sessions and dispatches the
// inbound event union to the hub and chat service.
type Gateway struct {
	hub      *Hub
	chat     *service.ChatService
	resolver identity.Resolver

	// allowAnonymous lets sockets without a resolved identity join rooms
	// and send; off by default.
	allowAnonymous bool
	historyLimit   int

	upgrader    websocket.Upgrader
	checkOrigin func(r *http.Request) bool
}

func NewGateway(
	h *Hub,
	chat *service.ChatService,
	resolver identity.Resolver,
	allowAnonymous bool,
	historyLimit int,
	allowedOrigins []string,
) *Gateway {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	return &Gateway{
		hub:            h,
		chat:           chat,
		resolver:       resolver,
		allowAnonymous: allowAnonymous,
		historyLimit:   historyLimit,
		checkOrigin:    checkOrigin,
		upgrader: websocket.Upgrader{
			CheckOrigin:  checkOrigin,
			Subprotocols: []string{"bearer"},
		},
	}
}

// Handler returns the HTTP handler for the /ws endpoint. Identity
// resolution failure is not an error: the connection proceeds
// unauthenticated and may only query presence unless anonymous access is
// enabled.
func (g *Gateway) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !g.checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		userID := g.resolver.Resolve(extractHandshake(r))

		conn, err := g.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		c := NewClient(uuid.NewString(), userID, conn)
		g.hub.Register(c)
		go c.writePump()
		// The socket outlives any deadline middleware put on the upgrade
		// request; persistence calls for later frames must not inherit it.
		g.readPump(context.WithoutCancel(r.Context()), c)
	}
}

// readPump reads frames until the connection dies, validating each event
// before dispatch. It runs on the connection's goroutine, so events from
// one socket are handled strictly in submission order.
func (g *Gateway) readPump(ctx context.Context, c *Client) {
	defer func() {
		g.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ws: read from %s: %v", c.socketID, err)
			}
			break
		}

		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.SendError("malformed payload")
			continue
		}
		if err := ev.Validate(); err != nil {
			c.SendError(err.Error())
			continue
		}
		g.dispatch(ctx, c, ev)
	}
}

func (g *Gateway) dispatch(ctx context.Context, c *Client, ev Event) {
	// Presence queries are open to unauthenticated sockets.
	switch ev.Type {
	case EventGetUserStatus:
		status := StatusOffline
		if g.hub.IsOnline(ev.UserID) {
			status = StatusOnline
		}
		c.Send(map[string]any{
			"type":    EventUserStatus,
			"user_id": ev.UserID,
			"status":  status,
		})
		return
	case EventGetOnlineUsers:
		c.Send(map[string]any{
			"type":  EventOnlineUsers,
			"users": g.hub.OnlineUsers(),
		})
		return
	}

	if !c.Authenticated() && !g.allowAnonymous {
		c.SendError("authentication required")
		return
	}

	actor, err := g.actorFor(c, ev)
	if err != nil {
		c.SendError(err.Error())
		return
	}

	switch ev.Type {
	case EventJoinConversation:
		g.hub.Join(c, ev.ConversationID)

	case EventLeaveConversation:
		g.hub.Leave(c, ev.ConversationID)

	case EventMessage:
		view, err := g.chat.SendMessage(ctx, ev.ConversationID, actor, ev.Content)
		if err != nil {
			g.reportError(c, err, "failed to send message")
			return
		}
		// Sender receives the message through the room like everyone
		// else; there is no client-side optimistic echo.
		g.hub.BroadcastRoom(view.ConversationID, map[string]any{
			"type":    EventMessage,
			"message": view,
		}, "")

	case EventTyping:
		// Typing is ephemeral; only sockets joined to the room may signal
		// into it, and a non-member's signal is dropped rather than errored.
		if !g.hub.InRoom(c.SocketID(), ev.ConversationID) {
			return
		}
		g.hub.BroadcastRoom(ev.ConversationID, map[string]any{
			"type":            EventTyping,
			"conversation_id": ev.ConversationID,
			"user_id":         actor,
			"is_typing":       ev.IsTyping,
		}, c.SocketID())

	case EventMarkRead:
		_, at, err := g.chat.MarkRead(ctx, ev.ConversationID, actor)
		if err != nil {
			g.reportError(c, err, "failed to mark messages as read")
			return
		}
		// Broadcast regardless of how many rows changed: the receipt
		// means "seen up to now".
		g.hub.BroadcastRoom(ev.ConversationID, map[string]any{
			"type":            EventMessagesRead,
			"conversation_id": ev.ConversationID,
			"user_id":         actor,
			"timestamp":       at,
		}, "")

	case EventAddReaction:
		reaction, convID, err := g.chat.AddReaction(ctx, ev.MessageID, actor, ev.Emoji)
		if err != nil {
			g.reportError(c, err, "failed to add reaction")
			return
		}
		g.hub.BroadcastRoom(convID, map[string]any{
			"type":       EventReactionAdded,
			"message_id": ev.MessageID,
			"reaction":   reaction,
		}, "")

	case EventRemoveReaction:
		removed, convID, err := g.chat.RemoveReaction(ctx, ev.MessageID, actor, ev.Emoji)
		if err != nil {
			g.reportError(c, err, "failed to remove reaction")
			return
		}
		if !removed {
			return
		}
		g.hub.BroadcastRoom(convID, map[string]any{
			"type":       EventReactionRemoved,
			"message_id": ev.MessageID,
			"user_id":    actor,
			"emoji":      ev.Emoji,
		}, "")

	case EventHistory:
		views, err := g.chat.History(ctx, ev.ConversationID, g.historyLimit)
		if err != nil {
			g.reportError(c, err, "failed to load history")
			return
		}
		c.Send(map[string]any{
			"type":            EventHistory,
			"conversation_id": ev.ConversationID,
			"messages":        views,
		})
	}
}

// actorFor decides who an event acts as. Authenticated sessions always act
// as themselves; payload author fields are only accepted when they agree.
// Anonymous sockets (when permitted) fall back to the payload fields.
func (g *Gateway) actorFor(c *Client, ev Event) (string, error) {
	claimed := ev.AuthorID
	if claimed == "" {
		claimed = ev.UserID
	}
	if c.Authenticated() {
		if claimed != "" && claimed != c.UserID() {
			return "", fmt.Errorf("%w: author does not match session identity", domain.ErrInvalidInput)
		}
		return c.UserID(), nil
	}
	return claimed, nil
}

// reportError maps service failures onto the per-socket error event.
// Client-caused conditions surface verbatim; anything else is logged and
// replaced with a generic message so storage internals stay private.
func (g *Gateway) reportError(c *Client, err error, generic string) {
	if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrNotFound) {
		c.SendError(err.Error())
		return
	}
	log.Printf("ws: %s: %v", generic, err)
	c.SendError(generic)
}

// extractHandshake pulls identity material from the upgrade request: a
// direct trusted id from the query, or a bearer token from the
// Authorization header, the websocket subprotocol, or the query string.
func extractHandshake(r *http.Request) identity.Handshake {
	h := identity.Handshake{UserID: r.URL.Query().Get("user_id")}

	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		h.Token = strings.TrimSpace(authHeader[len("Bearer "):])
	}
	if h.Token == "" {
		protocolHeader := r.Header.Get("Sec-WebSocket-Protocol")
		if protocolHeader != "" {
			parts := strings.Split(protocolHeader, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") {
				h.Token = parts[1]
			}
		}
	}
	if h.Token == "" {
		h.Token = r.URL.Query().Get("token")
	}
	return h
}

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}
