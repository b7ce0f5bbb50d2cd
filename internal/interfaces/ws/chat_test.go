package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	appcatalog "github.com/ecommerce/backend/internal/application/catalog"
	"github.com/ecommerce/backend/internal/application/chat"
	"github.com/ecommerce/backend/internal/domain/catalog"
	"github.com/ecommerce/backend/internal/infrastructure/auth"
	"github.com/ecommerce/backend/internal/infrastructure/config"
	"github.com/ecommerce/backend/internal/infrastructure/persistence"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingMetrics struct {
	mu          sync.Mutex
	outcomes    []string
	connections int64
}

func (m *recordingMetrics) RecordChatMessage(_ context.Context, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *recordingMetrics) ChatConnected(_ context.Context, delta int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections += delta
}

func (m *recordingMetrics) snapshot() ([]string, int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.outcomes...), m.connections
}

type chatFixture struct {
	server    *httptest.Server
	gateway   *ChatGateway
	jwt       *auth.JWTService
	blacklist *auth.InMemoryTokenBlacklist
	metrics   *recordingMetrics
	products  *persistence.GormProductRepository
}

func newChatFixture(t *testing.T, cfg Config) *chatFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(persistence.AllModels()...))

	products := persistence.NewGormProductRepository(db)
	productService := appcatalog.NewProductService(products, persistence.NewGormCategoryRepository(db), nil, nil, zap.NewNop())
	assistant := chat.NewAssistant(productService, persistence.NewGormOrderRepository(db), products, zap.NewNop())

	jwt := auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-32-characters-long",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "test-issuer",
	})
	blacklist := auth.NewInMemoryTokenBlacklist()
	metrics := &recordingMetrics{}

	gateway := NewChatGateway(assistant, jwt, blacklist, cfg, zap.NewNop())
	gateway.SetMetrics(metrics)

	r := gin.New()
	r.GET(ChatPath, gateway.Handle)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &chatFixture{
		server:    server,
		gateway:   gateway,
		jwt:       jwt,
		blacklist: blacklist,
		metrics:   metrics,
		products:  products,
	}
}

func (f *chatFixture) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + ChatPath
	if token != "" {
		url += "?token=" + token
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (f *chatFixture) token(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := f.jwt.GenerateAccessToken(auth.TokenSubject{UserID: userID, Email: "client@example.com", Role: "CLIENT"})
	require.NoError(t, err)
	return token.Token
}

func readBot(t *testing.T, conn *websocket.Conn) chat.BotMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var frame chat.Envelope[chat.BotMessage]
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, chat.EventBotMessage, frame.Event)
	return frame.Data
}

func say(t *testing.T, conn *websocket.Conn, message string, option *int) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(chat.Envelope[chat.CustomerMessage]{
		Event: chat.EventCustomerMessage,
		Data:  chat.CustomerMessage{Message: message, Option: option},
	}))
}

func option(n int) *int { return &n }

func TestChatGateway_WelcomeAndPaymentInfo(t *testing.T) {
	f := newChatFixture(t, Config{})
	conn := f.dial(t, "")

	welcome := readBot(t, conn)
	assert.Equal(t, chat.TypeWelcome, welcome.Type)
	assert.Equal(t, chat.MenuOptions, welcome.Options)

	say(t, conn, "", option(chat.OptionPaymentInfo))
	reply := readBot(t, conn)
	assert.Equal(t, chat.TypePaymentInfo, reply.Type)
	data, ok := reply.Data.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, data, "securityInfo")

	// unknown options re-list the menu
	say(t, conn, "", option(42))
	assert.Equal(t, chat.TypeOptions, readBot(t, conn).Type)
}

func TestChatGateway_GuestOrderHistory(t *testing.T) {
	f := newChatFixture(t, Config{})
	conn := f.dial(t, "")
	readBot(t, conn)

	say(t, conn, "", option(chat.OptionOrderHistory))
	reply := readBot(t, conn)
	assert.Equal(t, chat.TypeError, reply.Type)
	assert.Contains(t, reply.Message, "log in")
}

func TestChatGateway_CustomerOrderHistory(t *testing.T) {
	f := newChatFixture(t, Config{})
	conn := f.dial(t, f.token(t, uuid.New()))
	readBot(t, conn)

	say(t, conn, "", option(chat.OptionOrderHistory))
	reply := readBot(t, conn)
	require.Equal(t, chat.TypeOrderHistory, reply.Type, reply.Message)
	data, ok := reply.Data.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 0, data["totalOrders"])
}

func TestChatGateway_Availability(t *testing.T) {
	f := newChatFixture(t, Config{})
	product, err := catalog.NewProduct("Desk Lamp", "Warm light", decimal.RequireFromString("24.90"), 7)
	require.NoError(t, err)
	require.NoError(t, f.products.Save(context.Background(), product))

	conn := f.dial(t, "")
	readBot(t, conn)

	say(t, conn, "", option(chat.OptionAvailability))
	assert.Equal(t, chat.TypeProductAvailabilityPrompt, readBot(t, conn).Type)

	say(t, conn, "desk lamp", nil)
	answer := readBot(t, conn)
	assert.Equal(t, chat.TypeProductAvailability, answer.Type)
	assert.Contains(t, answer.Message, "Desk Lamp")
	assert.Contains(t, answer.Message, "7 units")
	// back at the menu afterwards
	assert.Equal(t, chat.TypeOptions, readBot(t, conn).Type)

	assert.Eventually(t, func() bool {
		outcomes, connections := f.metrics.snapshot()
		return len(outcomes) == 2 && outcomes[1] == OutcomeAnswered && connections == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestChatGateway_MalformedFrame(t *testing.T) {
	f := newChatFixture(t, Config{})
	conn := f.dial(t, "")
	readBot(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello?")))
	reply := readBot(t, conn)
	assert.Equal(t, chat.TypeError, reply.Type)

	// other events are ignored and the session keeps working
	require.NoError(t, conn.WriteJSON(map[string]string{"event": "typing"}))
	say(t, conn, "", option(chat.OptionWarranty))
	assert.Equal(t, chat.TypeWarrantyPrompt, readBot(t, conn).Type)
}

func TestChatGateway_InvalidTokenClosesWithPolicyViolation(t *testing.T) {
	f := newChatFixture(t, Config{})
	conn := f.dial(t, "not-a-jwt")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
}

func TestChatGateway_RevokedTokenIsRejected(t *testing.T) {
	f := newChatFixture(t, Config{})
	token := f.token(t, uuid.New())
	claims, err := f.jwt.ValidateAccessToken(token)
	require.NoError(t, err)
	require.NoError(t, f.blacklist.AddToBlacklist(context.Background(), claims.ID, time.Hour))

	conn := f.dial(t, token)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
}

func TestChatGateway_ReadLimit(t *testing.T) {
	f := newChatFixture(t, Config{MaxMessageSize: 64})
	conn := f.dial(t, "")
	readBot(t, conn)

	say(t, conn, strings.Repeat("x", 256), nil)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseMessageTooBig), "got %v", err)
}

func TestChatGateway_IdleTimeout(t *testing.T) {
	f := newChatFixture(t, Config{IdleTimeout: 50 * time.Millisecond, PingInterval: 20 * time.Millisecond})
	conn := f.dial(t, "")
	readBot(t, conn)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	assert.Eventually(t, func() bool { return f.gateway.ActiveConnections() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestChatGateway_Shutdown(t *testing.T) {
	f := newChatFixture(t, Config{})
	conn := f.dial(t, "")
	readBot(t, conn)
	require.Eventually(t, func() bool { return f.gateway.ActiveConnections() == 1 }, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.gateway.Shutdown(ctx))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	_, connections := f.metrics.snapshot()
	assert.Equal(t, int64(0), connections)

	// new connections are turned away once shut down
	late := f.dial(t, "")
	require.NoError(t, late.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = late.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestChatGateway_CheckOrigin(t *testing.T) {
	g := NewChatGateway(nil, nil, nil, Config{AllowedOrigins: []string{"https://shop.example.com"}}, zap.NewNop())

	tests := []struct {
		origin string
		want   bool
	}{
		{origin: "https://shop.example.com", want: true},
		{origin: "https://evil.example.com", want: false},
		{origin: "", want: true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, ChatPath, nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, g.checkOrigin(r), tt.origin)
	}
}
