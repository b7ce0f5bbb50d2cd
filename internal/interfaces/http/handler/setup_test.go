package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	billingapp "github.com/ecommerce/backend/internal/application/billing"
	appidentity "github.com/ecommerce/backend/internal/application/identity"
	"github.com/ecommerce/backend/internal/domain/catalog"
	"github.com/ecommerce/backend/internal/domain/identity"
	"github.com/ecommerce/backend/internal/infrastructure/auth"
	"github.com/ecommerce/backend/internal/infrastructure/config"
	"github.com/ecommerce/backend/internal/infrastructure/persistence"
	"github.com/ecommerce/backend/internal/interfaces/http/dto"
	"github.com/ecommerce/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
}

// testJWTConfig returns a default JWT config for tests
func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                "test-secret-key-32-characters-long",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "test-issuer",
	}
}

// testEnv is an in-memory database with the built-in roles seeded
type testEnv struct {
	db        *gorm.DB
	jwt       *auth.JWTService
	blacklist *auth.InMemoryTokenBlacklist
	roles     map[string]*identity.Role
	users     *persistence.GormUserRepository
	products  *persistence.GormProductRepository
}

func newTestEnv(t *testing.T) *testEnv {
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

	env := &testEnv{
		db:        db,
		jwt:       auth.NewJWTService(testJWTConfig()),
		blacklist: auth.NewInMemoryTokenBlacklist(),
		roles:     make(map[string]*identity.Role),
		users:     persistence.NewGormUserRepository(db),
		products:  persistence.NewGormProductRepository(db),
	}
	roleRepo := persistence.NewGormRoleRepository(db)
	for _, name := range []string{identity.RoleAdmin, identity.RoleClient} {
		role, err := identity.NewRole(name, name+" role")
		require.NoError(t, err)
		require.NoError(t, roleRepo.Create(context.Background(), role))
		env.roles[name] = role
	}
	return env
}

// authenticated mounts the JWT middleware the server uses
func (e *testEnv) authenticated() gin.HandlerFunc {
	return middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService:     e.jwt,
		TokenBlacklist: e.blacklist,
		Logger:         zap.NewNop(),
	})
}

// seedUser stores a verified user with the given role
func (e *testEnv) seedUser(t *testing.T, email, roleName string) *identity.User {
	t.Helper()
	user, err := identity.NewUser(email, "secret-password", "Test", "User", e.roles[roleName])
	require.NoError(t, err)
	user.MarkVerified()
	require.NoError(t, e.users.Create(context.Background(), user))
	return user
}

func (e *testEnv) tokenFor(t *testing.T, user *identity.User) string {
	t.Helper()
	token, err := e.jwt.GenerateAccessToken(auth.TokenSubject{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.RoleName,
	})
	require.NoError(t, err)
	return token.Token
}

func (e *testEnv) seedProduct(t *testing.T, name, price string, stock int) *catalog.Product {
	t.Helper()
	product, err := catalog.NewProduct(name, name+" description", decimal.RequireFromString(price), stock)
	require.NoError(t, err)
	require.NoError(t, e.products.Save(context.Background(), product))
	return product
}

// envelope mirrors dto.Response with the data left undecoded
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func doRequest(t *testing.T, engine http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	resp := decodeEnvelope(t, w)
	require.True(t, resp.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

// capturingMailer records account mails instead of sending them
type capturingMailer struct {
	mu            sync.Mutex
	verifications []appidentity.AccountMail
	resets        []appidentity.AccountMail
}

func (m *capturingMailer) SendVerification(_ context.Context, mail appidentity.AccountMail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifications = append(m.verifications, mail)
	return nil
}

func (m *capturingMailer) SendPasswordReset(_ context.Context, mail appidentity.AccountMail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, mail)
	return nil
}

func (m *capturingMailer) lastVerification() appidentity.AccountMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verifications[len(m.verifications)-1]
}

func (m *capturingMailer) lastReset() appidentity.AccountMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets[len(m.resets)-1]
}

// validSignature is the only signature fakeGateway accepts
const validSignature = "t=1,v1=valid"

// fakeGateway stands in for Stripe. Webhook payloads are WebhookEvent JSON.
type fakeGateway struct {
	mu       sync.Mutex
	sessions map[string]*billingapp.CheckoutSession
	created  int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: make(map[string]*billingapp.CheckoutSession)}
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, input billingapp.CheckoutSessionInput) (*billingapp.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created++

	var total int64
	for _, item := range input.Items {
		total += item.UnitAmount * item.Quantity
	}
	session := &billingapp.CheckoutSession{
		ID:            "cs_test_" + input.OrderID,
		URL:           "https://checkout.stripe.test/" + input.OrderID,
		PaymentStatus: billingapp.CheckoutPaymentStatusUnpaid,
		AmountTotal:   total,
		Metadata:      map[string]string{"order_id": input.OrderID, "user_id": input.UserID},
	}
	g.sessions[session.ID] = session
	return session, nil
}

func (g *fakeGateway) GetCheckoutSession(_ context.Context, sessionID string) (*billingapp.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	session, ok := g.sessions[sessionID]
	if !ok {
		return nil, errors.New("no such checkout session: " + sessionID)
	}
	copied := *session
	return &copied, nil
}

func (g *fakeGateway) ParseWebhook(payload []byte, signature string) (*billingapp.WebhookEvent, error) {
	if signature != validSignature {
		return nil, billingapp.ErrInvalidSignature
	}
	var event billingapp.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// markPaid simulates the customer completing the hosted checkout
func (g *fakeGateway) markPaid(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[sessionID].PaymentStatus = billingapp.CheckoutPaymentStatusPaid
}
