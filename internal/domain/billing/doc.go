// Package billing provides domain models for settling orders.
//
// Key Aggregates:
//   - Payment: money received for an order, through Stripe Checkout or recorded manually
//   - Invoice: the fiscal document issued once an order has been paid
//
// The billing domain integrates with:
//   - Trade domain: payments settle orders and mark them paid
//   - Identity domain: payments and invoices belong to a user
package billing
