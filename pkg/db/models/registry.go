package models

// All lists every persisted model in dependency order. SQLite dev mode and
// tests migrate from it; Postgres uses the goose migrations instead.
func All() []any {
	return []any{
		&Country{},
		&Vendor{},
		&ShippingRateOverride{},
		&Product{},
		&ProductFreeShipping{},
		&ProductVariant{},
		&ProductSize{},
		&CartItem{},
		&Coupon{},
		&Order{},
		&OrderGroup{},
		&OrderItem{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
