package enums

type PaymentMethod string

const (
	// PaymentMethodSimulated marks records written without a real payment provider.
	PaymentMethodSimulated PaymentMethod = "simulated"
	PaymentMethodStripe    PaymentMethod = "stripe"
)
