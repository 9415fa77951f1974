package enums

// PaymentStatus tracks collection of an order's total. Checkout always
// writes pending; capture happens outside this service.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var paymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusFailed,
	PaymentStatusRefunded,
}

func (p PaymentStatus) IsValid() bool { return oneOf(p, paymentStatuses) }

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return parse(value, "payment status", paymentStatuses)
}
