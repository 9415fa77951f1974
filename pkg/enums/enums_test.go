package enums

import "testing"

func TestParseShippingFeeMethodIsCaseInsensitive(t *testing.T) {
	for raw, want := range map[string]ShippingFeeMethod{
		"ITEM":    ShippingFeeMethodItem,
		"weight":  ShippingFeeMethodWeight,
		" Fixed ": ShippingFeeMethodFixed,
	} {
		got, err := ParseShippingFeeMethod(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s got %s", raw, want, got)
		}
	}
	if _, err := ParseShippingFeeMethod("volume"); err == nil {
		t.Fatal("expected unknown method to fail")
	}
}

func TestFulfillmentTransitions(t *testing.T) {
	cases := []struct {
		from, to FulfillmentStatus
		allowed  bool
	}{
		{FulfillmentStatusPending, FulfillmentStatusProcessing, true},
		{FulfillmentStatusPending, FulfillmentStatusCancelled, true},
		{FulfillmentStatusPending, FulfillmentStatusShipped, false},
		{FulfillmentStatusProcessing, FulfillmentStatusShipped, true},
		{FulfillmentStatusProcessing, FulfillmentStatusCancelled, true},
		{FulfillmentStatusShipped, FulfillmentStatusDelivered, true},
		{FulfillmentStatusShipped, FulfillmentStatusCancelled, false},
		{FulfillmentStatusDelivered, FulfillmentStatusPending, false},
		{FulfillmentStatusCancelled, FulfillmentStatusProcessing, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s: expected %v got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
	if !FulfillmentStatusDelivered.IsTerminal() || !FulfillmentStatusCancelled.IsTerminal() {
		t.Fatal("delivered and cancelled must be terminal")
	}
	if FulfillmentStatusShipped.IsTerminal() {
		t.Fatal("shipped must not be terminal")
	}
}

func TestDeriveOrderStatus(t *testing.T) {
	cases := []struct {
		name   string
		groups []FulfillmentStatus
		want   OrderStatus
	}{
		{"all pending", []FulfillmentStatus{FulfillmentStatusPending, FulfillmentStatusPending}, OrderStatusPending},
		{"one processing", []FulfillmentStatus{FulfillmentStatusPending, FulfillmentStatusProcessing}, OrderStatusProcessing},
		{"one shipped", []FulfillmentStatus{FulfillmentStatusShipped, FulfillmentStatusProcessing}, OrderStatusPartiallyShipped},
		{"all shipped", []FulfillmentStatus{FulfillmentStatusShipped, FulfillmentStatusDelivered}, OrderStatusShipped},
		{"all delivered", []FulfillmentStatus{FulfillmentStatusDelivered, FulfillmentStatusDelivered}, OrderStatusDelivered},
		{"cancelled ignored", []FulfillmentStatus{FulfillmentStatusDelivered, FulfillmentStatusCancelled}, OrderStatusDelivered},
		{"all cancelled", []FulfillmentStatus{FulfillmentStatusCancelled, FulfillmentStatusCancelled}, OrderStatusCancelled},
		{"no groups", nil, OrderStatusPending},
	}
	for _, tc := range cases {
		if got := DeriveOrderStatus(tc.groups); got != tc.want {
			t.Fatalf("%s: expected %s got %s", tc.name, tc.want, got)
		}
	}
}

func TestParseRejectsUnknownValues(t *testing.T) {
	if role, err := ParseUserRole(" Vendor "); err != nil || role != UserRoleVendor {
		t.Fatalf("expected vendor role, got %q (%v)", role, err)
	}
	if _, err := ParseUserRole("root"); err == nil {
		t.Fatal("expected unknown role to fail")
	}
	if _, err := ParseFulfillmentStatus("lost"); err == nil {
		t.Fatal("expected unknown fulfillment status to fail")
	}
	if _, err := ParseCheckoutWarningCode("coupon_rejected"); err != nil {
		t.Fatalf("parse warning code: %v", err)
	}
}

func TestIsValid(t *testing.T) {
	if !EventOrderCreated.IsValid() || OutboxEventType("order_deleted").IsValid() {
		t.Fatal("outbox event type validation mismatch")
	}
	if !AggregateOrderGroup.IsValid() || OutboxAggregateType("cart").IsValid() {
		t.Fatal("outbox aggregate validation mismatch")
	}
	if !PaymentStatusPending.IsValid() || PaymentStatus("authorized").IsValid() {
		t.Fatal("payment status validation mismatch")
	}
	if !OrderStatusPartiallyShipped.IsValid() || OrderStatus("lost").IsValid() {
		t.Fatal("order status validation mismatch")
	}
}
