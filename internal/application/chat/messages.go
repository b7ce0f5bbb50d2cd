package chat

import (
	"time"

	appcatalog "github.com/ecommerce/backend/internal/application/catalog"
	"github.com/ecommerce/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wire event names
const (
	EventCustomerMessage = "customer_message"
	EventBotMessage      = "bot_message"
)

// Bot message types
const (
	TypeWelcome                   = "welcome"
	TypeOptions                   = "options"
	TypeGeneralResponse           = "general_response"
	TypeError                     = "error"
	TypeProductAvailabilityPrompt = "product_availability_prompt"
	TypeProductAvailability       = "product_availability"
	TypeProductComparisonPrompt   = "product_comparison_prompt"
	TypeProductComparisonNext     = "product_comparison_next"
	TypeProductComparison         = "product_comparison"
	TypeOrderHistory              = "order_history"
	TypePaymentInfo               = "payment_info"
	TypeWarrantyPrompt            = "warranty_prompt"
	TypeWarrantyInfo              = "warranty_info"
)

// Menu options, indexed by the option number the client sends
const (
	OptionAvailability = iota
	OptionComparison
	OptionOrderHistory
	OptionPaymentInfo
	OptionWarranty
)

// MenuOptions is the main menu shown on connect and after each answer
var MenuOptions = []string{
	"Check product availability",
	"Compare products",
	"View my order history",
	"Payment methods",
	"Warranty information",
}

// Envelope is the JSON frame exchanged over the socket
type Envelope[T any] struct {
	Event string `json:"event"`
	Data  T      `json:"data"`
}

// CustomerMessage is an inbound chat message. Option selects a menu entry
// while the session is at the welcome step.
type CustomerMessage struct {
	Message string `json:"message"`
	Option  *int   `json:"option,omitempty"`
}

// BotMessage is an outbound assistant reply
type BotMessage struct {
	Type    string   `json:"type"`
	Message string   `json:"message"`
	Options []string `json:"options,omitempty"`
	Data    any      `json:"data,omitempty"`
}

// ProductSummary is the short product card shown in chat answers
type ProductSummary struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Description string          `json:"description,omitempty"`
}

// AvailabilityData answers an availability question
type AvailabilityData struct {
	Available       bool               `json:"available"`
	Product         *ProductSummary    `json:"product,omitempty"`
	Stock           *catalog.StockInfo `json:"stock,omitempty"`
	Recommendations []ProductSummary   `json:"recommendations,omitempty"`
}

// ComparisonData answers a comparison request
type ComparisonData struct {
	Success  bool                        `json:"success"`
	Products []appcatalog.ComparisonItem `json:"products,omitempty"`
}

// RecentOrder is one line of the order history answer
type RecentOrder struct {
	ID     uuid.UUID       `json:"id"`
	Date   time.Time       `json:"date"`
	Total  decimal.Decimal `json:"total"`
	Status string          `json:"status"`
	Items  int             `json:"items"`
}

// OrderHistoryData summarizes a customer's purchases
type OrderHistoryData struct {
	TotalOrders      int64           `json:"totalOrders"`
	TotalSpent       decimal.Decimal `json:"totalSpent"`
	RecentOrders     []RecentOrder   `json:"recentOrders"`
	FavoriteCategory string          `json:"favoriteCategory"`
}

// PaymentMethodInfo describes one accepted payment method
type PaymentMethodInfo struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// InstallmentInfo describes instalment plans
type InstallmentInfo struct {
	Available bool   `json:"available"`
	Plans     []int  `json:"plans"`
	Note      string `json:"note"`
}

// SecurityInfo lists the payment protections in place
type SecurityInfo struct {
	Encrypted          bool `json:"encrypted"`
	FraudProtection    bool `json:"fraudProtection"`
	MoneyBackGuarantee bool `json:"moneyBackGuarantee"`
}

// PaymentInfoData answers the payment methods question
type PaymentInfoData struct {
	Methods      []PaymentMethodInfo `json:"methods"`
	Installments InstallmentInfo     `json:"installments"`
	SecurityInfo SecurityInfo        `json:"securityInfo"`
}

// WarrantyData answers a warranty question
type WarrantyData struct {
	Found    bool              `json:"found"`
	Product  string            `json:"product,omitempty"`
	Warranty *catalog.Warranty `json:"warranty,omitempty"`
}

func toSummary(id uuid.UUID, name string, price decimal.Decimal, imageURL, description string) ProductSummary {
	return ProductSummary{ID: id, Name: name, Price: price, ImageURL: imageURL, Description: description}
}
