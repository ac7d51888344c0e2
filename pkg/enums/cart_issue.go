package enums

// CartIssueType classifies a correction made while validating a cart.
type CartIssueType string

const (
	CartIssueProductNotFound    CartIssueType = "product_not_found"
	CartIssueProductUnavailable CartIssueType = "product_unavailable"
	CartIssuePriceChanged       CartIssueType = "price_changed"
	CartIssueOutOfStock         CartIssueType = "out_of_stock"
	CartIssueInsufficientStock  CartIssueType = "insufficient_stock"
)

// Drops reports whether the issue removed the line from the cart.
func (c CartIssueType) Drops() bool {
	switch c {
	case CartIssueProductNotFound, CartIssueProductUnavailable, CartIssueOutOfStock:
		return true
	default:
		return false
	}
}
