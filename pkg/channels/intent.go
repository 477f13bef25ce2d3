package channels

// Intent is the reason an outbound message is being sent.
type Intent string

const (
	IntentAbandonedCart  Intent = "abandoned_cart"
	IntentProductView    Intent = "product_view"
	IntentCheckoutFail   Intent = "checkout_fail"
	IntentVIPCustomer    Intent = "vip_customer"
	IntentHighEngagement Intent = "high_engagement"
	IntentLowEngagement  Intent = "low_engagement"

	// IntentUnrecognized marks any message type outside the known set.
	// Rule lookup treats it as IntentLowEngagement.
	IntentUnrecognized Intent = "unrecognized"
)

// Intents returns the recognized intents. IntentUnrecognized is not included.
func Intents() []Intent {
	return []Intent{
		IntentAbandonedCart,
		IntentProductView,
		IntentCheckoutFail,
		IntentVIPCustomer,
		IntentHighEngagement,
		IntentLowEngagement,
	}
}

// ParseIntent maps a raw message type onto an Intent by exact match. It never fails:
// unknown values become IntentUnrecognized.
func ParseIntent(s string) Intent {
	switch i := Intent(s); i {
	case IntentAbandonedCart, IntentProductView, IntentCheckoutFail,
		IntentVIPCustomer, IntentHighEngagement, IntentLowEngagement:
		return i
	default:
		return IntentUnrecognized
	}
}

// IsRecognized reports whether i is one of the known intents.
func (i Intent) IsRecognized() bool {
	return i != IntentUnrecognized && ParseIntent(string(i)) == i
}

// Fallback returns the intent whose rule applies to i.
func (i Intent) Fallback() Intent {
	if i.IsRecognized() {
		return i
	}
	return IntentLowEngagement
}

// String returns the wire value of the intent.
func (i Intent) String() string {
	return string(i)
}

// Segment is the informational engagement bucket of a customer.
type Segment string

const (
	SegmentHigh   Segment = "high_engagement"
	SegmentMedium Segment = "medium_engagement"
	SegmentLow    Segment = "low_engagement"
)

// SegmentFor classifies a total engagement count.
func SegmentFor(totalEngagement int) Segment {
	switch {
	case totalEngagement > 10:
		return SegmentHigh
	case totalEngagement > 5:
		return SegmentMedium
	default:
		return SegmentLow
	}
}
