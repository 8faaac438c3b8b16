package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jerrybuks/agentic-ecommerce/internal/session"
	"github.com/jerrybuks/agentic-ecommerce/pkg/enums"
	"github.com/jerrybuks/agentic-ecommerce/pkg/openai"
)

// AddressFields carries the shipping address details extracted from a
// provide_shipping_address utterance.
type AddressFields struct {
	FullName   string `json:"full_name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

// Decision is the classifier's verdict for a single user turn.
type Decision struct {
	Action     enums.Action
	Query      string
	ProductRef string
	Quantity   int
	Address    *AddressFields
}

// Classifier maps a user utterance (with conversation history) to one of
// the supported actions plus its extracted parameters.
type Classifier interface {
	Classify(ctx context.Context, history []session.Turn, message string) (Decision, error)
}

type completer interface {
	Complete(ctx context.Context, messages []openai.Message) (string, error)
}

type llmClassifier struct {
	llm completer
}

// NewClassifier builds the LLM-backed classifier.
func NewClassifier(llm completer) (Classifier, error) {
	if llm == nil {
		return nil, fmt.Errorf("completion client required")
	}
	return &llmClassifier{llm: llm}, nil
}

const classifierSystemPrompt = `You are an intent classifier for a shopping assistant.
Classify the user's latest message into exactly one action:

- search_products: the user wants to find or browse products
- answer_policy_question: a question about shipping, returns, payments, or store policy
- view_cart: the user wants to see their cart
- add_to_cart: the user wants to add a product to the cart
- view_orders: the user wants to see past orders
- request_voucher: the user wants a voucher or discount code
- provide_shipping_address: the message contains a shipping address
- place_order: the user wants to complete the purchase
- general_chat: anything else

Respond with a single JSON object and nothing else:
{"action": "...", "query": "...", "product_ref": "...", "quantity": 1,
 "address": {"full_name": "", "line1": "", "line2": "", "city": "",
             "state": "", "postal_code": "", "country": "", "phone": ""}}

Rules:
- "query" holds the search terms or the policy question.
- "product_ref" holds the product id, SKU, or name for add_to_cart. When
  the user refers to an earlier result by position ("the second one"),
  keep that wording.
- "quantity" defaults to 1.
- "address" is only set for provide_shipping_address.`

type classifierOutput struct {
	Action     string         `json:"action"`
	Query      string         `json:"query"`
	ProductRef string         `json:"product_ref"`
	Quantity   int            `json:"quantity"`
	Address    *AddressFields `json:"address"`
}

func (c *llmClassifier) Classify(ctx context.Context, history []session.Turn, message string) (Decision, error) {
	messages := []openai.Message{{Role: openai.RoleSystem, Content: classifierSystemPrompt}}
	for _, turn := range history {
		role := openai.RoleUser
		if turn.Role == session.RoleAssistant {
			role = openai.RoleAssistant
		}
		messages = append(messages, openai.Message{Role: role, Content: turn.Content})
	}
	messages = append(messages, openai.Message{Role: openai.RoleUser, Content: message})

	raw, err := c.llm.Complete(ctx, messages)
	if err != nil {
		return Decision{}, err
	}
	return parseDecision(raw), nil
}

// parseDecision is forgiving: models wrap JSON in code fences or prose, and
// anything unparseable degrades to general_chat rather than failing the turn.
func parseDecision(raw string) Decision {
	fallback := Decision{Action: enums.ActionGeneralChat, Quantity: 1}

	payload := extractJSON(raw)
	if payload == "" {
		return fallback
	}

	var out classifierOutput
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return fallback
	}

	action, err := enums.ParseAction(out.Action)
	if err != nil {
		return fallback
	}

	quantity := out.Quantity
	if quantity < 1 {
		quantity = 1
	}

	decision := Decision{
		Action:     action,
		Query:      strings.TrimSpace(out.Query),
		ProductRef: strings.TrimSpace(out.ProductRef),
		Quantity:   quantity,
	}
	if action == enums.ActionProvideShippingAddress {
		decision.Address = out.Address
	}
	return decision
}

// extractJSON pulls the first top-level JSON object out of a completion.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case !inString && ch == '{':
			depth++
		case !inString && ch == '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}
