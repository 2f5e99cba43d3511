package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cigarro-in/cigarro-backend/api/responses"
	"github.com/cigarro-in/cigarro-backend/api/validators"
	"github.com/cigarro-in/cigarro-backend/internal/orders"
	"github.com/cigarro-in/cigarro-backend/pkg/db/models"
	"github.com/cigarro-in/cigarro-backend/pkg/logger"
	"github.com/cigarro-in/cigarro-backend/pkg/pagination"
	"github.com/cigarro-in/cigarro-backend/pkg/types"
)

// OrdersList is the recovery view: a user browses past orders here when a
// retry has lost its session context.
func OrdersList(manager orders.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := manager.List(r.Context(), userID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]orderResponse, 0, len(list.Orders))
		for i := range list.Orders {
			items = append(items, newOrderResponse(&list.Orders[i]))
		}
		responses.WriteSuccess(w, orderListResponse{
			Orders:     items,
			NextCursor: list.NextCursor,
		})
	}
}

type orderListResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type orderResponse struct {
	OrderID          uuid.UUID           `json:"order_id"`
	DisplayID        string              `json:"display_id"`
	TransactionID    uuid.UUID           `json:"transaction_id"`
	Status           string              `json:"status"`
	ShippingMethod   string              `json:"shipping_method"`
	ShippingAddress  *types.Address      `json:"shipping_address,omitempty"`
	Subtotal         string              `json:"subtotal"`
	ShippingCost     string              `json:"shipping_cost"`
	CouponCode       *string             `json:"coupon_code,omitempty"`
	CouponDiscount   string              `json:"coupon_discount"`
	ReferralDiscount string              `json:"referral_discount"`
	GoodwillDiscount string              `json:"goodwill_discount"`
	Total            string              `json:"total"`
	Items            []orderItemResponse `json:"items"`
	CreatedAt        time.Time           `json:"created_at"`
}

type orderItemResponse struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	ComboID   *uuid.UUID `json:"combo_id,omitempty"`
	Name      string     `json:"name"`
	Quantity  int        `json:"quantity"`
	UnitPrice string     `json:"unit_price"`
	LineTotal string     `json:"line_total"`
}

func newOrderResponse(order *models.Order) orderResponse {
	if order == nil {
		return orderResponse{}
	}
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			ComboID:   item.ComboID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			LineTotal: item.LineTotal.StringFixed(2),
		})
	}
	return orderResponse{
		OrderID:          order.ID,
		DisplayID:        order.DisplayID,
		TransactionID:    order.TransactionID,
		Status:           string(order.Status),
		ShippingMethod:   string(order.ShippingMethod),
		ShippingAddress:  order.ShippingAddress,
		Subtotal:         order.Subtotal.StringFixed(2),
		ShippingCost:     order.ShippingCost.StringFixed(2),
		CouponCode:       order.CouponCode,
		CouponDiscount:   order.CouponDiscount.StringFixed(2),
		ReferralDiscount: order.ReferralDiscount.StringFixed(2),
		GoodwillDiscount: order.GoodwillDiscount.StringFixed(2),
		Total:            order.Total.StringFixed(2),
		Items:            items,
		CreatedAt:        order.CreatedAt,
	}
}
