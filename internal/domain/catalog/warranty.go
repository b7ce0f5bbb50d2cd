package catalog

// Warranty describes the after-sales policy that applies to a product
type Warranty struct {
	Duration   string   `json:"duration"`
	Type       string   `json:"type"`
	Coverage   []string `json:"coverage"`
	Conditions []string `json:"conditions"`
	Contact    string   `json:"contact"`
}

// StandardWarranty is the store-wide manufacturer warranty
func StandardWarranty() Warranty {
	return Warranty{
		Duration: "12 months",
		Type:     "Manufacturer warranty",
		Coverage: []string{
			"Manufacturing defects",
			"Malfunction under normal operation",
			"Parts and labour",
		},
		Conditions: []string{
			"Normal use of the product",
			"Proof of purchase required",
			"Damage caused by misuse is excluded",
		},
		Contact: "support@shop.example or 1-800-123-4567",
	}
}
