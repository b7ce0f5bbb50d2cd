package trade

import (
	"context"

	"github.com/ecommerce/backend/internal/domain/billing"
	"github.com/ecommerce/backend/internal/domain/catalog"
	"github.com/ecommerce/backend/internal/domain/trade"
)

// TransactionScope provides transactional access to the repositories touched by
// the checkout and payment flows. All repository operations performed inside
// Execute share one database transaction and commit or roll back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes repositories bound to the current transaction.
//
// Products must be read through FindByIDForUpdate and written through SaveStock
// so that concurrent orders serialise on the product row.
type TransactionalRepositories interface {
	Products() catalog.ProductRepository
	Carts() trade.CartRepository
	Orders() trade.OrderRepository
	Payments() billing.PaymentRepository
	Invoices() billing.InvoiceRepository
}

// NoOpTransactionScope runs functions without a real transaction.
// It is useful for unit tests with mocked repositories.
type NoOpTransactionScope struct {
	products catalog.ProductRepository
	carts    trade.CartRepository
	orders   trade.OrderRepository
	payments billing.PaymentRepository
	invoices billing.InvoiceRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(
	products catalog.ProductRepository,
	carts trade.CartRepository,
	orders trade.OrderRepository,
	payments billing.PaymentRepository,
	invoices billing.InvoiceRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		products: products,
		carts:    carts,
		orders:   orders,
		payments: payments,
		invoices: invoices,
	}
}

// Execute runs fn directly
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) Products() catalog.ProductRepository { return s.products }
func (s *NoOpTransactionScope) Carts() trade.CartRepository         { return s.carts }
func (s *NoOpTransactionScope) Orders() trade.OrderRepository       { return s.orders }
func (s *NoOpTransactionScope) Payments() billing.PaymentRepository { return s.payments }
func (s *NoOpTransactionScope) Invoices() billing.InvoiceRepository { return s.invoices }

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
