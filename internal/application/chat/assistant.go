package chat

import (
	"context"
	"fmt"
	"strings"

	appcatalog "github.com/ecommerce/backend/internal/application/catalog"
	"github.com/ecommerce/backend/internal/domain/catalog"
	"github.com/ecommerce/backend/internal/domain/trade"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

// RecommendationLimit caps the suggestions shown with an availability answer
const RecommendationLimit = 3

// ProductAssistant is the catalog surface the assistant reads.
// *appcatalog.ProductService implements it.
type ProductAssistant interface {
	FindByQuery(ctx context.Context, query string) (*catalog.Product, error)
	StockInfo(ctx context.Context, id uuid.UUID) (*appcatalog.StockResponse, error)
	Recommendations(ctx context.Context, id uuid.UUID, limit int) ([]appcatalog.ProductResponse, error)
	WarrantyInfo(ctx context.Context, id uuid.UUID) (*appcatalog.WarrantyResponse, error)
	Compare(ctx context.Context, ids []uuid.UUID) ([]appcatalog.ComparisonItem, error)
}

// ProductFinder loads products with their categories
type ProductFinder interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error)
}

// Assistant drives the menu based shopping conversation
type Assistant struct {
	products ProductAssistant
	orders   trade.OrderRepository
	catalog  ProductFinder
	logger   *zap.Logger
}

// NewAssistant creates a new Assistant
func NewAssistant(products ProductAssistant, orders trade.OrderRepository, finder ProductFinder, logger *zap.Logger) *Assistant {
	return &Assistant{
		products: products,
		orders:   orders,
		catalog:  finder,
		logger:   logger,
	}
}

// Welcome returns the greeting sent when a connection opens
func (a *Assistant) Welcome() BotMessage {
	return BotMessage{
		Type:    TypeWelcome,
		Message: "Hi! I'm your shopping assistant. How can I help you today?",
		Options: MenuOptions,
	}
}

// Handle advances the session with one customer message and returns the replies.
// Failures are reported as an error message and the session goes back to the menu.
func (a *Assistant) Handle(ctx context.Context, session *Session, msg CustomerMessage) []BotMessage {
	replies, err := a.dispatch(ctx, session, msg)
	if err != nil {
		a.logger.Warn("Chat request failed",
			zap.String("step", string(session.Step)),
			zap.Error(err))
		session.Reset()
		return []BotMessage{{
			Type:    TypeError,
			Message: "Sorry, something went wrong while processing your request. Please try again.",
			Options: MenuOptions,
		}}
	}
	return replies
}

func (a *Assistant) dispatch(ctx context.Context, session *Session, msg CustomerMessage) ([]BotMessage, error) {
	switch session.Step {
	case StepWelcome:
		return a.handleMenu(ctx, session, msg)
	case StepProductAvailability:
		return a.handleAvailability(ctx, session, msg.Message)
	case StepProductComparison:
		return a.handleComparison(ctx, session, msg.Message)
	case StepWarrantyInfo:
		return a.handleWarranty(ctx, session, msg.Message)
	default:
		session.Reset()
		return []BotMessage{{
			Type:    TypeGeneralResponse,
			Message: "Let's start over. What would you like to do?",
			Options: MenuOptions,
		}}, nil
	}
}

func (a *Assistant) handleMenu(ctx context.Context, session *Session, msg CustomerMessage) ([]BotMessage, error) {
	if msg.Option == nil {
		return []BotMessage{a.menu()}, nil
	}

	switch *msg.Option {
	case OptionAvailability:
		session.Step = StepProductAvailability
		return []BotMessage{{
			Type:    TypeProductAvailabilityPrompt,
			Message: "Which product would you like to check? Type its name.",
		}}, nil
	case OptionComparison:
		session.Step = StepProductComparison
		session.Comparison = nil
		return []BotMessage{{
			Type:    TypeProductComparisonPrompt,
			Message: "Type the name of the first product you want to compare.",
		}}, nil
	case OptionOrderHistory:
		if session.IsGuest() {
			return []BotMessage{{
				Type:    TypeError,
				Message: "Please log in to see your order history.",
				Options: MenuOptions,
			}}, nil
		}
		history, err := a.orderHistory(ctx, *session.CustomerID)
		if err != nil {
			return nil, err
		}
		return []BotMessage{history}, nil
	case OptionPaymentInfo:
		return []BotMessage{paymentInfo()}, nil
	case OptionWarranty:
		session.Step = StepWarrantyInfo
		return []BotMessage{{
			Type:    TypeWarrantyPrompt,
			Message: "Which product's warranty would you like to know about?",
		}}, nil
	default:
		return []BotMessage{a.menu()}, nil
	}
}

func (a *Assistant) menu() BotMessage {
	return BotMessage{
		Type:    TypeOptions,
		Message: "Please choose one of the following options:",
		Options: MenuOptions,
	}
}

func (a *Assistant) handleAvailability(ctx context.Context, session *Session, query string) ([]BotMessage, error) {
	query = normalizeQuery(query)
	product, err := a.products.FindByQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	session.Reset()

	if product == nil {
		return []BotMessage{
			{
				Type:    TypeProductAvailability,
				Message: fmt.Sprintf("I couldn't find any product matching %q.", query),
				Data:    AvailabilityData{Available: false},
			},
			a.menu(),
		}, nil
	}

	stock, err := a.products.StockInfo(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	related, err := a.products.Recommendations(ctx, product.ID, RecommendationLimit)
	if err != nil {
		return nil, err
	}
	recommendations := make([]ProductSummary, 0, len(related))
	for _, r := range related {
		recommendations = append(recommendations, toSummary(r.ID, r.Name, r.Price, r.ImageURL, ""))
	}

	name := product.Name
	var text string
	if stock.Available {
		text = fmt.Sprintf("✅ %s is available. Stock: %d units. Price: $%s", name, stock.Quantity, product.Price.StringFixed(2))
	} else {
		text = fmt.Sprintf("❌ %s is currently out of stock.", name)
	}

	summary := toSummary(product.ID, product.Name, product.Price, product.ImageURL, product.Description)
	return []BotMessage{
		{
			Type:    TypeProductAvailability,
			Message: text,
			Data: AvailabilityData{
				Available:       stock.Available,
				Product:         &summary,
				Stock:           &stock.StockInfo,
				Recommendations: recommendations,
			},
		},
		a.menu(),
	}, nil
}

func (a *Assistant) handleComparison(ctx context.Context, session *Session, query string) ([]BotMessage, error) {
	session.Comparison = append(session.Comparison, normalizeQuery(query))
	if len(session.Comparison) < 2 {
		return []BotMessage{{
			Type:    TypeProductComparisonNext,
			Message: "Now type the name of the second product.",
		}}, nil
	}

	queries := session.Comparison
	session.Reset()

	ids := make([]uuid.UUID, 0, len(queries))
	seen := make(map[uuid.UUID]bool, len(queries))
	for _, q := range queries {
		product, err := a.products.FindByQuery(ctx, q)
		if err != nil {
			return nil, err
		}
		if product == nil || seen[product.ID] {
			continue
		}
		seen[product.ID] = true
		ids = append(ids, product.ID)
	}

	if len(ids) < 2 {
		return []BotMessage{{
			Type:    TypeProductComparison,
			Message: "I couldn't find two different products to compare. Please check the names and try again.",
			Data:    ComparisonData{Success: false},
			Options: MenuOptions,
		}}, nil
	}

	items, err := a.products.Compare(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	return []BotMessage{{
		Type:    TypeProductComparison,
		Message: "Here is the comparison of " + strings.Join(names, " and ") + ".",
		Data:    ComparisonData{Success: true, Products: items},
		Options: MenuOptions,
	}}, nil
}

func (a *Assistant) handleWarranty(ctx context.Context, session *Session, query string) ([]BotMessage, error) {
	query = normalizeQuery(query)
	product, err := a.products.FindByQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	session.Reset()

	if product == nil {
		return []BotMessage{{
			Type:    TypeWarrantyInfo,
			Message: fmt.Sprintf("I couldn't find any product matching %q.", query),
			Data:    WarrantyData{Found: false},
			Options: MenuOptions,
		}}, nil
	}

	info, err := a.products.WarrantyInfo(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	return []BotMessage{{
		Type: TypeWarrantyInfo,
		Message: fmt.Sprintf("%s comes with a %s (%s).",
			info.ProductName, strings.ToLower(info.Warranty.Type), info.Warranty.Duration),
		Data:    WarrantyData{Found: true, Product: info.ProductName, Warranty: &info.Warranty},
		Options: MenuOptions,
	}}, nil
}

func paymentInfo() BotMessage {
	return BotMessage{
		Type:    TypePaymentInfo,
		Message: "These are the payment methods we accept:",
		Data: PaymentInfoData{
			Methods: []PaymentMethodInfo{
				{Type: "STRIPE", Name: "Credit or debit card", Description: "Pay securely online with Visa, Mastercard or American Express through Stripe."},
				{Type: "CASH", Name: "Cash", Description: "Pay in cash when your order is delivered or picked up."},
				{Type: "TRANSFER", Name: "Bank transfer", Description: "Transfer the order total to our bank account and send us the reference."},
			},
			Installments: InstallmentInfo{
				Available: true,
				Plans:     []int{3, 6, 12},
				Note:      "Instalments are available on card payments, subject to your bank's approval.",
			},
			SecurityInfo: SecurityInfo{
				Encrypted:          true,
				FraudProtection:    true,
				MoneyBackGuarantee: true,
			},
		},
		Options: MenuOptions,
	}
}

// normalizeQuery collapses whitespace and case-folds a product query.
// A Caser keeps state, so one is created per call.
func normalizeQuery(q string) string {
	return cases.Fold().String(strings.Join(strings.Fields(q), " "))
}
