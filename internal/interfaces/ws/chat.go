// Package ws serves the WebSocket chat assistant.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ecommerce/backend/internal/application/chat"
	"github.com/ecommerce/backend/internal/infrastructure/auth"
	"github.com/ecommerce/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ChatPath is where the gateway is mounted
const ChatPath = "/ecommerce-chat"

// Chat message outcomes reported to ChatMetrics
const (
	OutcomeAnswered = "answered"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

const (
	defaultMaxMessageSize = 4 << 10
	defaultIdleTimeout    = 5 * time.Minute
	defaultPingInterval   = 30 * time.Second
	writeWait             = 10 * time.Second
)

// ChatMetrics receives chat traffic counts. *telemetry.ShopMetrics implements it.
type ChatMetrics interface {
	RecordChatMessage(ctx context.Context, outcome string)
	ChatConnected(ctx context.Context, delta int64)
}

// Config tunes the chat gateway. Zero values fall back to defaults.
type Config struct {
	// AllowedOrigins restricts browser origins; empty allows any origin
	AllowedOrigins []string
	MaxMessageSize int64
	// IdleTimeout closes connections without customer messages for this long
	IdleTimeout time.Duration
	// PingInterval is how often the server pings; the client must pong
	// within twice this interval
	PingInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = defaultIdleTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = defaultPingInterval
	}
	return c
}

// ChatGateway upgrades HTTP requests to chat connections and runs one
// assistant session per connection
type ChatGateway struct {
	assistant  *chat.Assistant
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	metrics    ChatMetrics
	cfg        Config
	upgrader   websocket.Upgrader
	logger     *zap.Logger

	mu     sync.Mutex
	conns  map[*connection]struct{}
	closed bool
}

// NewChatGateway creates a new ChatGateway. blacklist may be nil.
func NewChatGateway(
	assistant *chat.Assistant,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	cfg Config,
	logger *zap.Logger,
) *ChatGateway {
	cfg = cfg.withDefaults()
	g := &ChatGateway{
		assistant:  assistant,
		jwtService: jwtService,
		blacklist:  blacklist,
		cfg:        cfg,
		logger:     logger,
		conns:      make(map[*connection]struct{}),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

// SetMetrics sets the recorder for chat traffic
func (g *ChatGateway) SetMetrics(metrics ChatMetrics) {
	g.metrics = metrics
}

// Handle is the gin handler for ChatPath
//
//	@ID				ecommerceChat
//	@Summary		Shopping assistant chat
//	@Description	Upgrades to a WebSocket. Frames are JSON {event, data}; send customer_message and receive bot_message.
//	@Tags			chat
//	@Param			token	query	string	false	"Access token; omit to chat as a guest"
//	@Success		101
//	@Router			/ecommerce-chat [get]
func (g *ChatGateway) Handle(c *gin.Context) {
	g.ServeHTTP(c.Writer, c.Request)
}

// ServeHTTP implements http.Handler
func (g *ChatGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// the token is verified before the upgrade, but a rejection is only
	// reported after it, as a 1008 close frame the browser can read
	customerID, authErr := g.authenticate(r)

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written an HTTP error response
		g.logger.Debug("Chat upgrade failed", zap.Error(err))
		return
	}

	if authErr != nil {
		g.logger.Info("Chat connection rejected", zap.Error(authErr))
		g.recordMessage(r.Context(), OutcomeRejected)
		deadline := time.Now().Add(writeWait)
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token"), deadline)
		_ = ws.Close()
		return
	}

	conn := newConnection(g, ws, customerID)
	if !g.track(conn) {
		conn.closeWith(websocket.CloseGoingAway, "server shutting down")
		return
	}
	defer g.untrack(conn)

	conn.run()
}

// Shutdown closes every open chat connection with a going-away frame and
// refuses new ones. It returns when all connection loops have exited or ctx ends.
func (g *ChatGateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	g.closed = true
	conns := make([]*connection, 0, len(g.conns))
	for c := range g.conns {
		conns = append(conns, c)
	}
	g.mu.Unlock()

	for _, c := range conns {
		c.closeWith(websocket.CloseGoingAway, "server shutting down")
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if g.ActiveConnections() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ActiveConnections returns the number of open chat connections
func (g *ChatGateway) ActiveConnections() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.conns)
}

// authenticate returns the caller's user id, nil for guests
func (g *ChatGateway) authenticate(r *http.Request) (*uuid.UUID, error) {
	token := middleware.ExtractToken(r)
	if token == "" {
		return nil, nil
	}
	claims, err := middleware.AuthenticateToken(r.Context(), g.jwtService, g.blacklist, g.logger, token)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, auth.ErrInvalidToken
	}
	return &id, nil
}

func (g *ChatGateway) checkOrigin(r *http.Request) bool {
	if len(g.cfg.AllowedOrigins) == 0 || slices.Contains(g.cfg.AllowedOrigins, "*") {
		return true
	}
	origin := r.Header.Get("Origin")
	// non-browser clients send no origin
	return origin == "" || slices.Contains(g.cfg.AllowedOrigins, origin)
}

func (g *ChatGateway) track(c *connection) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.conns[c] = struct{}{}
	if g.metrics != nil {
		g.metrics.ChatConnected(c.ctx, 1)
	}
	return true
}

func (g *ChatGateway) untrack(c *connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.conns[c]; !ok {
		return
	}
	delete(g.conns, c)
	if g.metrics != nil {
		g.metrics.ChatConnected(context.Background(), -1)
	}
}

func (g *ChatGateway) recordMessage(ctx context.Context, outcome string) {
	if g.metrics != nil {
		g.metrics.RecordChatMessage(ctx, outcome)
	}
}

// connection is one socket with its conversation. Reads and replies happen on
// the run goroutine; the keep-alive goroutine only sends control frames.
type connection struct {
	assistant    *chat.Assistant
	owner        *ChatGateway
	ws           *websocket.Conn
	session      *chat.Session
	ctx          context.Context
	cancel       context.CancelFunc
	logger       *zap.Logger
	lastActivity atomic.Int64
	closeOnce    sync.Once
}

func newConnection(g *ChatGateway, ws *websocket.Conn, customerID *uuid.UUID) *connection {
	ctx, cancel := context.WithCancel(context.Background())
	log := g.logger.With(zap.String("conn_id", uuid.NewString()))
	if customerID != nil {
		log = log.With(zap.String("user_id", customerID.String()))
	}
	c := &connection{
		assistant: g.assistant,
		owner:     g,
		ws:        ws,
		session:   chat.NewSession(customerID),
		ctx:       ctx,
		cancel:    cancel,
		logger:    log,
	}
	c.touch()
	return c
}

func (c *connection) run() {
	defer c.cancel()
	defer c.ws.Close()

	cfg := c.owner.cfg
	pongWait := 2 * cfg.PingInterval
	c.ws.SetReadLimit(cfg.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.keepAlive()

	c.logger.Debug("Chat connection opened", zap.Bool("guest", c.session.IsGuest()))
	if err := c.send(c.assistant.Welcome()); err != nil {
		return
	}

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("Chat connection lost", zap.Error(err))
			}
			break
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		c.touch()

		if err := c.handleFrame(raw); err != nil {
			c.logger.Debug("Chat write failed", zap.Error(err))
			break
		}
	}
	c.logger.Debug("Chat connection closed")
}

func (c *connection) handleFrame(raw []byte) error {
	var frame chat.Envelope[chat.CustomerMessage]
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.owner.recordMessage(c.ctx, OutcomeRejected)
		return c.send(chat.BotMessage{
			Type:    chat.TypeError,
			Message: "Messages must be JSON of the form {\"event\":\"customer_message\",\"data\":{...}}.",
			Options: chat.MenuOptions,
		})
	}
	if frame.Event != chat.EventCustomerMessage {
		c.logger.Debug("Ignoring chat event", zap.String("event", frame.Event))
		return nil
	}

	replies := c.assistant.Handle(c.ctx, c.session, frame.Data)
	outcome := OutcomeAnswered
	for _, reply := range replies {
		if reply.Type == chat.TypeError {
			outcome = OutcomeFailed
		}
		if err := c.send(reply); err != nil {
			return err
		}
	}
	c.owner.recordMessage(c.ctx, outcome)
	return nil
}

func (c *connection) send(msg chat.BotMessage) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(chat.Envelope[chat.BotMessage]{Event: chat.EventBotMessage, Data: msg})
}

// keepAlive pings the client and closes the connection once it has been idle
func (c *connection) keepAlive() {
	cfg := c.owner.cfg
	ticker := time.NewTicker(cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if time.Since(time.Unix(0, c.lastActivity.Load())) >= cfg.IdleTimeout {
				c.logger.Debug("Closing idle chat connection")
				c.closeWith(websocket.CloseNormalClosure, "idle timeout")
				return
			}
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					c.logger.Debug("Chat ping failed", zap.Error(err))
				}
				return
			}
		}
	}
}

// closeWith sends a close frame and tears the socket down, which ends run
func (c *connection) closeWith(code int, reason string) {
	c.closeOnce.Do(func() {
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		_ = c.ws.Close()
		c.cancel()
	})
}

func (c *connection) touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}
