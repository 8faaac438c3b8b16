package enums

import "fmt"

// Action is the closed set of intents the agent can execute for a turn.
type Action string

const (
	ActionSearchProducts         Action = "search_products"
	ActionAnswerPolicyQuestion   Action = "answer_policy_question"
	ActionViewCart               Action = "view_cart"
	ActionAddToCart              Action = "add_to_cart"
	ActionViewOrders             Action = "view_orders"
	ActionRequestVoucher         Action = "request_voucher"
	ActionProvideShippingAddress Action = "provide_shipping_address"
	ActionPlaceOrder             Action = "place_order"
	ActionGeneralChat            Action = "general_chat"
)

var validActions = []Action{
	ActionSearchProducts,
	ActionAnswerPolicyQuestion,
	ActionViewCart,
	ActionAddToCart,
	ActionViewOrders,
	ActionRequestVoucher,
	ActionProvideShippingAddress,
	ActionPlaceOrder,
	ActionGeneralChat,
}

// String implements fmt.Stringer.
func (a Action) String() string {
	return string(a)
}

// IsValid reports whether the value is a known Action.
func (a Action) IsValid() bool {
	for _, candidate := range validActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAction converts raw input into an Action.
func ParseAction(value string) (Action, error) {
	for _, candidate := range validActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid action %q", value)
}
