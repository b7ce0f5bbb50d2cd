package chat

import (
	"context"
	"fmt"
	"sort"

	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/ecommerce/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	recentOrderCount = 5
	historyPageSize  = 100
	noFavorite       = "None yet"
)

func (a *Assistant) orderHistory(ctx context.Context, customerID uuid.UUID) (BotMessage, error) {
	orders, err := a.allOrders(ctx, customerID)
	if err != nil {
		return BotMessage{}, err
	}

	data := OrderHistoryData{
		TotalOrders:      int64(len(orders)),
		TotalSpent:       decimal.Zero,
		RecentOrders:     make([]RecentOrder, 0, recentOrderCount),
		FavoriteCategory: noFavorite,
	}
	quantities := make(map[uuid.UUID]int)
	for i := range orders {
		o := &orders[i]
		if o.IsPaid() {
			data.TotalSpent = data.TotalSpent.Add(o.Total)
		}
		if len(data.RecentOrders) < recentOrderCount {
			data.RecentOrders = append(data.RecentOrders, RecentOrder{
				ID:     o.ID,
				Date:   o.CreatedAt,
				Total:  o.Total,
				Status: string(o.Status),
				Items:  o.ItemCount(),
			})
		}
		if o.IsCancelled() {
			continue
		}
		for _, d := range o.Details {
			quantities[d.ProductID] += d.Quantity
		}
	}

	favorite, err := a.favoriteCategory(ctx, quantities)
	if err != nil {
		return BotMessage{}, err
	}
	if favorite != "" {
		data.FavoriteCategory = favorite
	}

	text := "You haven't placed any orders yet."
	if data.TotalOrders > 0 {
		text = fmt.Sprintf("You have placed %d orders and spent $%s in total.", data.TotalOrders, data.TotalSpent.StringFixed(2))
	}
	return BotMessage{Type: TypeOrderHistory, Message: text, Data: data, Options: MenuOptions}, nil
}

// allOrders pages through the customer's orders, newest first
func (a *Assistant) allOrders(ctx context.Context, customerID uuid.UUID) ([]trade.Order, error) {
	var all []trade.Order
	for page := 1; ; page++ {
		filter := trade.OrderFilter{
			Filter: shared.Filter{Page: page, PageSize: historyPageSize, OrderBy: "created_at", OrderDir: "desc"},
			UserID: &customerID,
		}
		orders, err := a.orders.FindAll(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, orders...)
		if len(orders) < historyPageSize {
			return all, nil
		}
	}
}

// favoriteCategory returns the category with the most units bought.
// Ties go to the alphabetically first name.
func (a *Assistant) favoriteCategory(ctx context.Context, quantities map[uuid.UUID]int) (string, error) {
	if len(quantities) == 0 {
		return "", nil
	}
	ids := make([]uuid.UUID, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	products, err := a.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return "", err
	}

	totals := make(map[string]int)
	for i := range products {
		for _, name := range products[i].CategoryNames() {
			totals[name] += quantities[products[i].ID]
		}
	}
	if len(totals) == 0 {
		return "", nil
	}
	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if totals[names[i]] != totals[names[j]] {
			return totals[names[i]] > totals[names[j]]
		}
		return names[i] < names[j]
	})
	return names[0], nil
}
