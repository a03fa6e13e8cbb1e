package domain

// MaxImages bounds the attachments kept per session.
const MaxImages = 5

// Payment defaults shown on a proposal until the user changes them.
const (
	DefaultDownPaymentPercent = 50.0
	DefaultTerms              = "Standard contractor terms apply."
)

type LineItem struct {
	ID       string  `json:"id"`
	Quantity float64 `json:"quantity"`
	ItemName string  `json:"itemName"`
	Price    float64 `json:"price"`
}

func (l LineItem) Subtotal() float64 {
	return l.Quantity * l.Price
}

// SumLineItems is the proposal total over the given items.
func SumLineItems(items []LineItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Subtotal()
	}
	return total
}

type ImageAttachment struct {
	ID          string `json:"id"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
	Description string `json:"description"`
}
