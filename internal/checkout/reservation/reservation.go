// Package reservation decrements size stock inside the checkout transaction.
package reservation

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// StockRequest asks for qty units of one size.
type StockRequest struct {
	SizeID uuid.UUID
	Qty    int
}

// Shortfall describes a size that could not cover its request.
type Shortfall struct {
	SizeID    uuid.UUID `json:"size_id"`
	Requested int       `json:"requested"`
}

// MergeRequests sums quantities per size and orders the result by size id so
// concurrent checkouts lock rows in the same order.
func MergeRequests(requests []StockRequest) []StockRequest {
	totals := map[uuid.UUID]int{}
	for _, r := range requests {
		totals[r.SizeID] += r.Qty
	}
	out := make([]StockRequest, 0, len(totals))
	for id, qty := range totals {
		out = append(out, StockRequest{SizeID: id, Qty: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].SizeID[:], out[j].SizeID[:]) < 0
	})
	return out
}

// DecrementStock conditionally decrements every requested size. The update
// only applies while quantity >= requested, so stock never goes negative.
// Any shortfall returns a conflict error listing the sizes; the caller must
// roll back the transaction.
func DecrementStock(ctx context.Context, tx *gorm.DB, requests []StockRequest) error {
	var shortfalls []Shortfall
	for _, req := range MergeRequests(requests) {
		if req.Qty < 1 {
			return pkgerrors.Validation(fmt.Sprintf("quantity must be at least 1 for size %s", req.SizeID))
		}
		res := tx.WithContext(ctx).
			Model(&models.ProductSize{}).
			Where("id = ? AND quantity >= ?", req.SizeID, req.Qty).
			UpdateColumn("quantity", gorm.Expr("quantity - ?", req.Qty))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			shortfalls = append(shortfalls, Shortfall{SizeID: req.SizeID, Requested: req.Qty})
		}
	}
	if len(shortfalls) > 0 {
		return pkgerrors.Concurrency("item no longer available in requested quantity").
			WithDetails(map[string]any{"sizes": shortfalls})
	}
	return nil
}
