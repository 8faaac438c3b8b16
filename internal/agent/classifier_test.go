package agent

import (
	"context"
	"testing"

	"github.com/jerrybuks/agentic-ecommerce/internal/session"
	"github.com/jerrybuks/agentic-ecommerce/pkg/enums"
	"github.com/jerrybuks/agentic-ecommerce/pkg/openai"
)

func TestParseDecisionValidJSON(t *testing.T) {
	raw := `{"action": "add_to_cart", "product_ref": "SKU-123", "quantity": 3}`

	decision := parseDecision(raw)
	if decision.Action != enums.ActionAddToCart {
		t.Fatalf("expected add_to_cart, got %s", decision.Action)
	}
	if decision.ProductRef != "SKU-123" {
		t.Fatalf("expected product ref SKU-123, got %q", decision.ProductRef)
	}
	if decision.Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", decision.Quantity)
	}
}

func TestParseDecisionCodeFencedJSON(t *testing.T) {
	raw := "Here you go:\n```json\n{\"action\": \"search_products\", \"query\": \"boxing gloves\"}\n```"

	decision := parseDecision(raw)
	if decision.Action != enums.ActionSearchProducts {
		t.Fatalf("expected search_products, got %s", decision.Action)
	}
	if decision.Query != "boxing gloves" {
		t.Fatalf("expected query to survive fencing, got %q", decision.Query)
	}
}

func TestParseDecisionMalformedFallsBack(t *testing.T) {
	for _, raw := range []string{
		"I think the user wants to search",
		`{"action": "search_products"`,
		`{"action": "launch_missiles"}`,
		"",
	} {
		decision := parseDecision(raw)
		if decision.Action != enums.ActionGeneralChat {
			t.Fatalf("raw %q: expected general_chat fallback, got %s", raw, decision.Action)
		}
	}
}

func TestParseDecisionQuantityDefaultsToOne(t *testing.T) {
	decision := parseDecision(`{"action": "add_to_cart", "product_ref": "gloves", "quantity": 0}`)
	if decision.Quantity != 1 {
		t.Fatalf("expected quantity to default to 1, got %d", decision.Quantity)
	}
}

func TestParseDecisionAddressOnlyForAddressAction(t *testing.T) {
	withAddress := `{"action": "provide_shipping_address", "address": {"full_name": "Ada Lovelace", "line1": "1 Analytical Way", "city": "London", "state": "LDN", "postal_code": "E1 6AN", "country": "UK"}}`
	decision := parseDecision(withAddress)
	if decision.Address == nil || decision.Address.FullName != "Ada Lovelace" {
		t.Fatalf("expected address to be extracted, got %+v", decision.Address)
	}

	strayAddress := `{"action": "view_cart", "address": {"full_name": "Ada Lovelace"}}`
	decision = parseDecision(strayAddress)
	if decision.Address != nil {
		t.Fatal("expected address to be dropped for non-address actions")
	}
}

func TestClassifierIncludesHistory(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"action": "view_cart"}`}}
	classifier, err := NewClassifier(llm)
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}

	history := []session.Turn{
		{Role: session.RoleUser, Content: "show me gloves"},
		{Role: session.RoleAssistant, Content: "here are some gloves"},
	}
	decision, err := classifier.Classify(context.Background(), history, "what's in my cart?")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if decision.Action != enums.ActionViewCart {
		t.Fatalf("expected view_cart, got %s", decision.Action)
	}

	prompt := llm.calls[0]
	if len(prompt) != 4 {
		t.Fatalf("expected system + 2 history + current message, got %d messages", len(prompt))
	}
	if prompt[0].Role != openai.RoleSystem {
		t.Fatalf("expected system prompt first, got role %s", prompt[0].Role)
	}
	if prompt[2].Role != openai.RoleAssistant || prompt[2].Content != "here are some gloves" {
		t.Fatalf("expected history carried through, got %+v", prompt[2])
	}
	if prompt[3].Content != "what's in my cart?" {
		t.Fatalf("expected current message last, got %+v", prompt[3])
	}
}
