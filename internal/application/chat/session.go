package chat

import (
	"github.com/google/uuid"
)

// Step is where a conversation currently is
type Step string

const (
	StepWelcome             Step = "welcome"
	StepProductAvailability Step = "product_availability"
	StepProductComparison   Step = "product_comparison"
	StepOrderHistory        Step = "order_history"
	StepPaymentInfo         Step = "payment_info"
	StepWarrantyInfo        Step = "warranty_info"
)

// Session is the per-connection conversation state.
// It is owned by a single connection and not safe for concurrent use.
type Session struct {
	Step       Step
	CustomerID *uuid.UUID
	// Comparison holds the product queries collected so far
	Comparison []string
}

// NewSession starts a conversation. A nil customer is a guest.
func NewSession(customerID *uuid.UUID) *Session {
	return &Session{Step: StepWelcome, CustomerID: customerID}
}

// IsGuest reports whether the connection is unauthenticated
func (s *Session) IsGuest() bool {
	return s.CustomerID == nil
}

// Reset returns the conversation to the main menu
func (s *Session) Reset() {
	s.Step = StepWelcome
	s.Comparison = nil
}
