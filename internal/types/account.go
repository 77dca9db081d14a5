package types

// Balances maps an asset code to its free amount.
type Balances map[string]float64

// PriceLevel is one rung of an order book.
type PriceLevel struct {
	Price    float64 `json:"price" yaml:"price"`
	Quantity float64 `json:"quantity" yaml:"quantity"`
}

// OrderBook is a depth snapshot for one symbol.
type OrderBook struct {
	Symbol string       `json:"symbol" yaml:"symbol"`
	Bids   []PriceLevel `json:"bids" yaml:"bids"`
	Asks   []PriceLevel `json:"asks" yaml:"asks"`
}
