package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	apptrade "github.com/ecommerce/backend/internal/application/trade"
	"github.com/ecommerce/backend/internal/domain/billing"
	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/ecommerce/backend/internal/domain/trade"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Invoice errors
var (
	ErrInvoiceNotFound    = shared.NewDomainError("NOT_FOUND", "Invoice not found")
	ErrInvoiceNumberTaken = shared.NewDomainError("ALREADY_EXISTS", "Invoice number already exists")
	ErrOrderInvoiced      = shared.NewDomainError("ALREADY_EXISTS", "Order already has an issued invoice")
	ErrPDFDisabled        = shared.NewDomainError("PDF_DISABLED", "Invoice PDF rendering is not configured")
)

// InvoiceService issues and manages invoices for paid orders
type InvoiceService struct {
	invoiceRepo    billing.InvoiceRepository
	paymentRepo    billing.PaymentRepository
	orderRepo      trade.OrderRepository
	users          UserFinder
	products       ProductFinder
	renderer       InvoicePDFRenderer
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewInvoiceService creates a new InvoiceService. A nil renderer disables PDF downloads.
func NewInvoiceService(
	invoiceRepo billing.InvoiceRepository,
	paymentRepo billing.PaymentRepository,
	orderRepo trade.OrderRepository,
	users UserFinder,
	products ProductFinder,
	renderer InvoicePDFRenderer,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		users:       users,
		products:    products,
		renderer:    renderer,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for invoice events
func (s *InvoiceService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create issues an invoice. User, order and payment must exist.
// The total defaults to the order total and the number is generated when blank.
func (s *InvoiceService) Create(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	if _, err := s.users.FindByID(ctx, req.UserID); err != nil {
		return nil, notFoundAs(err, ErrUserNotFound)
	}
	order, err := s.orderRepo.FindByID(ctx, req.OrderID)
	if err != nil {
		return nil, notFoundAs(err, ErrOrderNotFound)
	}
	if _, err := s.paymentRepo.FindByID(ctx, req.PaymentID); err != nil {
		return nil, notFoundAs(err, ErrPaymentNotFound)
	}

	if req.InvoiceNumber != "" {
		if err := s.checkNumberFree(ctx, req.InvoiceNumber); err != nil {
			return nil, err
		}
	}

	if _, err := s.invoiceRepo.FindActiveByOrderID(ctx, order.ID); err == nil {
		return nil, ErrOrderInvoiced
	} else if !shared.IsNotFound(err) {
		return nil, err
	}

	total := order.Total
	if req.TotalAmount != nil {
		total = *req.TotalAmount
	}
	paymentID := req.PaymentID
	invoice, err := billing.NewInvoice(req.UserID, order.ID, &paymentID, total, req.InvoiceNumber)
	if err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, err
	}

	s.logger.Info("Invoice issued",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("order_id", order.ID.String()))
	s.publish(ctx, invoice)

	resp := ToInvoiceResponse(invoice)
	return &resp, nil
}

// IssueForPayment issues the invoice for a completed payment.
// Orders that already carry an issued invoice are skipped and return nil.
func (s *InvoiceService) IssueForPayment(ctx context.Context, paymentID uuid.UUID) (*InvoiceResponse, error) {
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, notFoundAs(err, ErrPaymentNotFound)
	}
	if !payment.IsPaid() {
		return nil, shared.NewDomainError("INVALID_STATE", "Invoices are only issued for paid payments")
	}

	existing, err := s.invoiceRepo.FindActiveByOrderID(ctx, payment.OrderID)
	if err == nil {
		s.logger.Debug("Invoice already issued for order",
			zap.String("order_id", payment.OrderID.String()),
			zap.String("invoice_number", existing.InvoiceNumber))
		return nil, nil
	}
	if !shared.IsNotFound(err) {
		return nil, err
	}

	invoice, err := billing.NewInvoice(payment.UserID, payment.OrderID, &payment.ID, payment.Amount, "")
	if err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		// a concurrent issuer won the order's unique issued slot
		if errors.Is(err, shared.ErrAlreadyExists) {
			if _, findErr := s.invoiceRepo.FindActiveByOrderID(ctx, payment.OrderID); findErr == nil {
				s.logger.Debug("Invoice issued concurrently for order",
					zap.String("order_id", payment.OrderID.String()))
				return nil, nil
			}
		}
		return nil, err
	}

	s.logger.Info("Invoice issued for payment",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("payment_id", payment.ID.String()))
	s.publish(ctx, invoice)

	resp := ToInvoiceResponse(invoice)
	return &resp, nil
}

// GetByID returns an invoice. Clients only see their own invoices.
func (s *InvoiceService) GetByID(ctx context.Context, caller apptrade.Caller, id uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.findVisible(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	resp := ToInvoiceResponse(invoice)
	return &resp, nil
}

// List returns invoices, newest first
func (s *InvoiceService) List(ctx context.Context, filter InvoiceListFilter) (*shared.Paginated[InvoiceResponse], error) {
	f := pageFilter(filter.Page, filter.PageSize)
	f.Search = filter.Search

	invoices, err := s.invoiceRepo.FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	total, err := s.invoiceRepo.Count(ctx, f)
	if err != nil {
		return nil, err
	}

	items := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		items[i] = ToInvoiceResponse(&invoices[i])
	}
	result := shared.NewPaginated(items, total, f.Page, f.PageSize)
	return &result, nil
}

// Update applies administrative corrections to an issued invoice
func (s *InvoiceService) Update(ctx context.Context, id uuid.UUID, req UpdateInvoiceRequest) (*InvoiceResponse, error) {
	invoice, err := s.findInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.InvoiceNumber != nil && *req.InvoiceNumber != invoice.InvoiceNumber {
		if err := s.checkNumberFree(ctx, *req.InvoiceNumber); err != nil {
			return nil, err
		}
	}
	if req.PaymentID != nil {
		if _, err := s.paymentRepo.FindByID(ctx, *req.PaymentID); err != nil {
			return nil, notFoundAs(err, ErrPaymentNotFound)
		}
	}

	if err := invoice.Apply(billing.InvoiceUpdate{
		TotalAmount:   req.TotalAmount,
		InvoiceNumber: req.InvoiceNumber,
		PaymentID:     req.PaymentID,
	}); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, err
	}

	resp := ToInvoiceResponse(invoice)
	return &resp, nil
}

// Cancel voids an invoice
func (s *InvoiceService) Cancel(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.findInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := invoice.Cancel(); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, err
	}
	s.logger.Info("Invoice canceled", zap.String("invoice_number", invoice.InvoiceNumber))
	s.publish(ctx, invoice)

	resp := ToInvoiceResponse(invoice)
	return &resp, nil
}

// Delete removes an invoice
func (s *InvoiceService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.findInvoice(ctx, id); err != nil {
		return err
	}
	return s.invoiceRepo.Delete(ctx, id)
}

// RenderPDF prints an invoice with its order lines. Clients only get their own invoices.
func (s *InvoiceService) RenderPDF(ctx context.Context, caller apptrade.Caller, id uuid.UUID) (*InvoicePDF, error) {
	if s.renderer == nil {
		return nil, ErrPDFDisabled
	}
	invoice, err := s.findVisible(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	doc, err := s.buildDocument(ctx, invoice)
	if err != nil {
		return nil, err
	}

	content, err := s.renderer.RenderInvoice(ctx, doc)
	if err != nil {
		s.logger.Error("Failed to render invoice PDF",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err))
		return nil, shared.WrapDomainError("RENDER_FAILED", "Failed to render invoice", err)
	}
	return &InvoicePDF{
		Filename: fmt.Sprintf("%s.pdf", invoice.InvoiceNumber),
		Content:  content,
	}, nil
}

func (s *InvoiceService) buildDocument(ctx context.Context, invoice *billing.Invoice) (*InvoiceDocument, error) {
	doc := &InvoiceDocument{
		InvoiceID:     invoice.ID,
		InvoiceNumber: invoice.InvoiceNumber,
		Status:        string(invoice.Status),
		IssuedAt:      invoice.CreatedAt,
		OrderID:       invoice.OrderID,
		Total:         invoice.TotalAmount,
	}
	if doc.IssuedAt.IsZero() {
		doc.IssuedAt = time.Now()
	}

	if user, err := s.users.FindByID(ctx, invoice.UserID); err == nil {
		doc.CustomerName = user.FullName()
		doc.CustomerEmail = user.Email
	}
	if invoice.PaymentID != nil {
		if payment, err := s.paymentRepo.FindByID(ctx, *invoice.PaymentID); err == nil {
			doc.PaymentMethod = string(payment.Method)
		}
	}

	order, err := s.orderRepo.FindByID(ctx, invoice.OrderID)
	if err != nil {
		if shared.IsNotFound(err) {
			return doc, nil
		}
		return nil, err
	}
	ids := make([]uuid.UUID, len(order.Details))
	for i, d := range order.Details {
		ids[i] = d.ProductID
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}
	for _, d := range order.Details {
		name, ok := names[d.ProductID]
		if !ok {
			name = "Product " + d.ProductID.String()[:8]
		}
		doc.Lines = append(doc.Lines, InvoiceLine{
			ProductName: name,
			Quantity:    d.Quantity,
			UnitPrice:   d.UnitPrice,
			Subtotal:    d.Subtotal,
		})
	}
	return doc, nil
}

func (s *InvoiceService) checkNumberFree(ctx context.Context, number string) error {
	exists, err := s.invoiceRepo.ExistsByNumber(ctx, number)
	if err != nil {
		return err
	}
	if exists {
		return ErrInvoiceNumberTaken
	}
	return nil
}

func (s *InvoiceService) findVisible(ctx context.Context, caller apptrade.Caller, id uuid.UUID) (*billing.Invoice, error) {
	invoice, err := s.findInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && invoice.UserID != caller.UserID {
		return nil, ErrInvoiceNotFound
	}
	return invoice, nil
}

func (s *InvoiceService) findInvoice(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, ErrInvoiceNotFound)
	}
	return invoice, nil
}

func (s *InvoiceService) publish(ctx context.Context, invoice *billing.Invoice) {
	events := invoice.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	invoice.ClearDomainEvents()
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish invoice events", zap.Error(err))
	}
}

// notFoundAs replaces a repository miss with a descriptive not-found error
func notFoundAs(err error, notFound error) error {
	if shared.IsNotFound(err) {
		return notFound
	}
	return err
}
