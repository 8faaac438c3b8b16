package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jerrybuks/agentic-ecommerce/internal/cart"
	"github.com/jerrybuks/agentic-ecommerce/internal/catalog"
	"github.com/jerrybuks/agentic-ecommerce/internal/checkout"
	"github.com/jerrybuks/agentic-ecommerce/internal/index"
	"github.com/jerrybuks/agentic-ecommerce/internal/orders"
	"github.com/jerrybuks/agentic-ecommerce/internal/session"
	"github.com/jerrybuks/agentic-ecommerce/internal/voucher"
	"github.com/jerrybuks/agentic-ecommerce/pkg/config"
	"github.com/jerrybuks/agentic-ecommerce/pkg/db/models"
	"github.com/jerrybuks/agentic-ecommerce/pkg/enums"
	pkgerrors "github.com/jerrybuks/agentic-ecommerce/pkg/errors"
	"github.com/jerrybuks/agentic-ecommerce/pkg/logger"
	"github.com/jerrybuks/agentic-ecommerce/pkg/metrics"
	"github.com/jerrybuks/agentic-ecommerce/pkg/openai"
	"github.com/jerrybuks/agentic-ecommerce/pkg/vectorstore"
)

const apologyMessage = "Sorry, something went wrong on our side. Please try again in a moment."

// Turn outcomes used as metric labels.
const (
	outcomeOK           = "ok"
	outcomePrecondition = "precondition_failed"
	outcomeNotFound     = "not_found"
	outcomeClarify      = "needs_clarification"
	outcomeDependency   = "dependency_error"
	outcomeError        = "error"
)

// ProductSummary is the catalog slice of a reply.
type ProductSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Brand    string `json:"brand"`
	Price    string `json:"price"`
	InStock  bool   `json:"in_stock"`
	Category string `json:"category"`
}

// Reply is the agent's answer to one user turn.
type Reply struct {
	Action   enums.Action        `json:"action"`
	Message  string              `json:"message"`
	Phase    enums.CheckoutPhase `json:"phase,omitempty"`
	Products []ProductSummary    `json:"products,omitempty"`
}

// Service handles one conversational turn end to end: classify, execute,
// respond, and record the exchange.
type Service interface {
	HandleQuery(ctx context.Context, userID, message string) (*Reply, error)
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Classifier  Classifier
	LLM         completer
	Embedder    embedder
	VectorStore *vectorstore.Store
	Sessions    *session.Store
	Catalog     catalog.Service
	Cart        cart.Service
	Orders      orders.Service
	Vouchers    voucher.Service
	Checkout    checkout.Service
	Retrieval   config.RetrievalConfig
	Collections config.VectorStoreConfig
	Logger      *logger.Logger
	Metrics     *metrics.AgentMetrics
}

type service struct {
	classifier Classifier
	llm        completer
	retriever  *retriever
	sessions   *session.Store
	catalog    catalog.Service
	cart       cart.Service
	orders     orders.Service
	vouchers   voucher.Service
	checkout   checkout.Service
	colls      config.VectorStoreConfig
	log        *logger.Logger
	metrics    *metrics.AgentMetrics
}

// NewService constructs the agent service.
func NewService(deps Deps) (Service, error) {
	if deps.Classifier == nil {
		return nil, fmt.Errorf("classifier required")
	}
	if deps.LLM == nil {
		return nil, fmt.Errorf("completion client required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if deps.Catalog == nil || deps.Cart == nil || deps.Orders == nil || deps.Vouchers == nil || deps.Checkout == nil {
		return nil, fmt.Errorf("domain services required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	ret, err := newRetriever(deps.Embedder, deps.VectorStore, deps.Retrieval, deps.Metrics)
	if err != nil {
		return nil, err
	}
	return &service{
		classifier: deps.Classifier,
		llm:        deps.LLM,
		retriever:  ret,
		sessions:   deps.Sessions,
		catalog:    deps.Catalog,
		cart:       deps.Cart,
		orders:     deps.Orders,
		vouchers:   deps.Vouchers,
		checkout:   deps.Checkout,
		colls:      deps.Collections,
		log:        deps.Logger,
		metrics:    deps.Metrics,
	}, nil
}

// HandleQuery never surfaces infrastructure failures to the caller: turns
// that hit a broken dependency come back as an apology reply with the real
// reason logged. Model calls happen outside the per-user lock; only state
// mutation is serialized.
func (s *service) HandleQuery(ctx context.Context, userID, message string) (*Reply, error) {
	start := time.Now()
	ctx = s.log.WithUserID(ctx, userID)

	history, err := s.sessions.History(ctx, userID)
	if err != nil {
		// A dead session store degrades to a memoryless turn.
		s.log.Error(ctx, "loading session history", err)
		history = nil
	}

	decision, err := s.classifier.Classify(ctx, history, message)
	if err != nil {
		s.log.Error(ctx, "classifying intent", err)
		s.metrics.IncTurn("unclassified", outcomeDependency)
		return &Reply{Action: enums.ActionGeneralChat, Message: apologyMessage}, nil
	}
	ctx = s.log.WithAction(ctx, decision.Action.String())

	reply, outcome := s.dispatch(ctx, userID, decision, message, history)

	unlock := s.sessions.LockUser(userID)
	appendErr := s.sessions.AppendTurns(ctx, userID,
		session.Turn{Role: session.RoleUser, Content: message, At: start},
		session.Turn{Role: session.RoleAssistant, Content: reply.Message, Action: decision.Action.String(), At: time.Now()},
	)
	unlock()
	if appendErr != nil {
		s.log.Error(ctx, "recording turn", appendErr)
	}

	s.metrics.IncTurn(decision.Action.String(), outcome)
	s.metrics.ObserveTurnDuration(decision.Action.String(), time.Since(start))
	return reply, nil
}

func (s *service) dispatch(ctx context.Context, userID string, decision Decision, message string, history []session.Turn) (*Reply, string) {
	switch decision.Action {
	case enums.ActionSearchProducts:
		return s.handleSearch(ctx, userID, decision, message)
	case enums.ActionAnswerPolicyQuestion:
		return s.handlePolicy(ctx, decision, message)
	case enums.ActionViewCart:
		return s.handleViewCart(ctx, userID)
	case enums.ActionAddToCart:
		return s.handleAddToCart(ctx, userID, decision)
	case enums.ActionViewOrders:
		return s.handleViewOrders(ctx, userID)
	case enums.ActionRequestVoucher:
		return s.handleRequestVoucher(ctx, userID)
	case enums.ActionProvideShippingAddress:
		return s.handleAddress(ctx, userID, decision)
	case enums.ActionPlaceOrder:
		return s.handlePlaceOrder(ctx, userID)
	default:
		return s.handleGeneralChat(ctx, message, history)
	}
}

func (s *service) handleSearch(ctx context.Context, userID string, decision Decision, message string) (*Reply, string) {
	query := decision.Query
	if query == "" {
		query = message
	}

	results, err := s.retriever.search(ctx, s.colls.ProductsCollection, query, activeProductFilters())
	if err != nil {
		return s.apology(ctx, enums.ActionSearchProducts, "searching products", err)
	}
	if len(results) == 0 {
		return &Reply{
			Action:  enums.ActionSearchProducts,
			Message: "I couldn't find any products matching that. Could you try different words?",
		}, outcomeNotFound
	}

	summaries, ids := s.resolveResults(ctx, results)

	unlock := s.sessions.LockUser(userID)
	if err := s.sessions.SetLastProducts(ctx, userID, ids); err != nil {
		s.log.Error(ctx, "recording retrieved products", err)
	}
	unlock()

	reply, err := s.groundedReply(ctx, searchReplyPrompt, query, resultTexts(results))
	if err != nil {
		s.log.Error(ctx, "generating search reply", err)
		reply = fallbackSearchMessage(summaries)
	}
	return &Reply{Action: enums.ActionSearchProducts, Message: reply, Products: summaries}, outcomeOK
}

func (s *service) handlePolicy(ctx context.Context, decision Decision, message string) (*Reply, string) {
	question := decision.Query
	if question == "" {
		question = message
	}

	results, err := s.retriever.search(ctx, s.colls.HandbookCollection, question, map[string]string{
		index.MetaSource: index.SourceHandbook,
	})
	if err != nil {
		return s.apology(ctx, enums.ActionAnswerPolicyQuestion, "searching handbook", err)
	}
	if len(results) == 0 {
		return &Reply{
			Action:  enums.ActionAnswerPolicyQuestion,
			Message: "I couldn't find anything about that in our store policies. Is there something else I can help with?",
		}, outcomeNotFound
	}

	reply, err := s.groundedReply(ctx, policyReplyPrompt, question, resultTexts(results))
	if err != nil {
		s.log.Error(ctx, "generating policy reply", err)
		reply = "Here's what our handbook says:\n\n" + results[0].Document.Text
	}
	return &Reply{Action: enums.ActionAnswerPolicyQuestion, Message: reply}, outcomeOK
}

func (s *service) handleViewCart(ctx context.Context, userID string) (*Reply, string) {
	view, err := s.cart.ViewCart(ctx, userID)
	if err != nil {
		return s.apology(ctx, enums.ActionViewCart, "loading cart", err)
	}
	if view.ItemCount == 0 {
		return &Reply{Action: enums.ActionViewCart, Message: "Your cart is empty."}, outcomeOK
	}

	var b strings.Builder
	b.WriteString("Here's your cart:\n")
	for _, line := range view.Lines {
		fmt.Fprintf(&b, "- %s x%d @ %s = %s\n", line.ProductName, line.Quantity, line.UnitPrice.StringFixed(2), line.LineTotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: %s", view.Total.StringFixed(2))
	return &Reply{Action: enums.ActionViewCart, Message: b.String()}, outcomeOK
}

func (s *service) handleAddToCart(ctx context.Context, userID string, decision Decision) (*Reply, string) {
	if decision.ProductRef == "" {
		return &Reply{
			Action:  enums.ActionAddToCart,
			Message: "Which product would you like to add? You can give me its name or SKU.",
		}, outcomeClarify
	}

	product, err := s.resolveProduct(ctx, userID, decision.ProductRef)
	if err != nil {
		if catalog.IsProductNotFound(err) {
			return &Reply{
				Action:  enums.ActionAddToCart,
				Message: fmt.Sprintf("I couldn't find a product matching %q. Try searching first so I know what you mean.", decision.ProductRef),
			}, outcomeNotFound
		}
		return s.apology(ctx, enums.ActionAddToCart, "resolving product", err)
	}

	unlock := s.sessions.LockUser(userID)
	view, err := s.cart.AddItem(ctx, userID, product.ID, decision.Quantity)
	unlock()
	if err != nil {
		if cart.IsOutOfStock(err) {
			return &Reply{
				Action:  enums.ActionAddToCart,
				Message: fmt.Sprintf("Sorry, we don't have enough stock of %s for that quantity.", product.Name),
			}, outcomePrecondition
		}
		if catalog.IsProductNotFound(err) {
			return &Reply{
				Action:  enums.ActionAddToCart,
				Message: fmt.Sprintf("%s isn't available right now.", product.Name),
			}, outcomeNotFound
		}
		return s.apology(ctx, enums.ActionAddToCart, "adding to cart", err)
	}

	return &Reply{
		Action:  enums.ActionAddToCart,
		Message: fmt.Sprintf("Added %d x %s to your cart. Cart total is now %s.", decision.Quantity, product.Name, view.Total.StringFixed(2)),
	}, outcomeOK
}

func (s *service) handleViewOrders(ctx context.Context, userID string) (*Reply, string) {
	recent, err := s.orders.ListRecent(ctx, userID, orders.DefaultRecentLimit)
	if err != nil {
		return s.apology(ctx, enums.ActionViewOrders, "listing orders", err)
	}
	if len(recent) == 0 {
		return &Reply{Action: enums.ActionViewOrders, Message: "You haven't placed any orders yet."}, outcomeOK
	}

	var b strings.Builder
	b.WriteString("Your recent orders:\n")
	for _, order := range recent {
		fmt.Fprintf(&b, "Order %s: total %s, placed %s\n", order.ID, order.Total.StringFixed(2), order.CreatedAt.Format("Jan 2, 2006"))
		for _, item := range order.Items {
			fmt.Fprintf(&b, "  - %s x%d @ %s\n", item.ProductName, item.Quantity, item.UnitPrice.StringFixed(2))
		}
	}
	return &Reply{Action: enums.ActionViewOrders, Message: strings.TrimRight(b.String(), "\n")}, outcomeOK
}

func (s *service) handleRequestVoucher(ctx context.Context, userID string) (*Reply, string) {
	unlock := s.sessions.LockUser(userID)
	v, err := s.vouchers.Request(ctx, userID)
	unlock()
	if err != nil {
		return s.apology(ctx, enums.ActionRequestVoucher, "requesting voucher", err)
	}
	return &Reply{
		Action:  enums.ActionRequestVoucher,
		Message: fmt.Sprintf("Your voucher code is %s, worth %s. It will be applied automatically when you place your order.", v.Code, v.Amount.StringFixed(2)),
	}, outcomeOK
}

func (s *service) handleAddress(ctx context.Context, userID string, decision Decision) (*Reply, string) {
	if decision.Address == nil {
		return &Reply{
			Action:  enums.ActionProvideShippingAddress,
			Message: "Please share your shipping address: name, street, city, and postal code.",
		}, outcomeClarify
	}

	input := checkout.AddressInput{
		FullName:   decision.Address.FullName,
		Line1:      decision.Address.Line1,
		City:       decision.Address.City,
		State:      decision.Address.State,
		PostalCode: decision.Address.PostalCode,
		Country:    decision.Address.Country,
	}
	if decision.Address.Line2 != "" {
		line2 := decision.Address.Line2
		input.Line2 = &line2
	}
	if decision.Address.Phone != "" {
		phone := decision.Address.Phone
		input.Phone = &phone
	}

	unlock := s.sessions.LockUser(userID)
	_, err := s.checkout.SaveAddress(ctx, userID, input)
	unlock()
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeValidation {
			return &Reply{
				Action:  enums.ActionProvideShippingAddress,
				Message: "That address looks incomplete. I need your name, street, city, and postal code.",
			}, outcomeClarify
		}
		return s.apology(ctx, enums.ActionProvideShippingAddress, "saving address", err)
	}

	phase, err := s.checkout.Phase(ctx, userID)
	if err != nil {
		phase = enums.CheckoutPhaseAddressSet
	}
	msg := "Shipping address saved."
	if phase == enums.CheckoutPhaseReadyForPayment {
		msg += " You're all set. Say \"place my order\" when you're ready."
	}
	return &Reply{Action: enums.ActionProvideShippingAddress, Message: msg, Phase: phase}, outcomeOK
}

func (s *service) handlePlaceOrder(ctx context.Context, userID string) (*Reply, string) {
	unlock := s.sessions.LockUser(userID)
	order, err := s.checkout.PlaceOrder(ctx, userID)
	unlock()
	if err != nil {
		switch {
		case checkout.IsEmptyCart(err):
			return &Reply{
				Action:  enums.ActionPlaceOrder,
				Message: "Your cart is empty. Add something before placing an order.",
			}, outcomePrecondition
		case checkout.IsNoShippingAddress(err):
			return &Reply{
				Action:  enums.ActionPlaceOrder,
				Message: "I need a shipping address first. Where should we send your order?",
				Phase:   enums.CheckoutPhaseNoAddress,
			}, outcomePrecondition
		case checkout.IsNoValidVoucher(err):
			return &Reply{
				Action:  enums.ActionPlaceOrder,
				Message: "You need a voucher that covers your cart total. Ask me for a voucher and I'll sort you out.",
				Phase:   enums.CheckoutPhaseAddressSet,
			}, outcomePrecondition
		case cart.IsOutOfStock(err):
			return &Reply{
				Action:  enums.ActionPlaceOrder,
				Message: "One of the items in your cart just sold out. Review your cart and try again.",
			}, outcomePrecondition
		default:
			return s.apology(ctx, enums.ActionPlaceOrder, "placing order", err)
		}
	}

	return &Reply{
		Action:  enums.ActionPlaceOrder,
		Message: fmt.Sprintf("Order placed! Your order %s for %s is confirmed.", order.ID, order.Total.StringFixed(2)),
		Phase:   enums.CheckoutPhaseOrderPlaced,
	}, outcomeOK
}

const generalChatPrompt = `You are a friendly shopping assistant for an online store.
Keep replies short and helpful. You can search products, answer policy
questions, manage the cart, issue vouchers, and place orders.`

func (s *service) handleGeneralChat(ctx context.Context, message string, history []session.Turn) (*Reply, string) {
	messages := []openai.Message{{Role: openai.RoleSystem, Content: generalChatPrompt}}
	for _, turn := range history {
		role := openai.RoleUser
		if turn.Role == session.RoleAssistant {
			role = openai.RoleAssistant
		}
		messages = append(messages, openai.Message{Role: role, Content: turn.Content})
	}
	messages = append(messages, openai.Message{Role: openai.RoleUser, Content: message})

	reply, err := s.llm.Complete(ctx, messages)
	if err != nil {
		return s.apology(ctx, enums.ActionGeneralChat, "generating reply", err)
	}
	return &Reply{Action: enums.ActionGeneralChat, Message: strings.TrimSpace(reply)}, outcomeOK
}

// resolveProduct turns a user reference into a catalog row. It tries, in
// order: an ordinal pointing at the last search results, a product id, a
// SKU, a name search, and finally semantic retrieval.
func (s *service) resolveProduct(ctx context.Context, userID, ref string) (*models.Product, error) {
	if idx, ok := parseOrdinal(ref); ok {
		lastIDs, err := s.sessions.LastProducts(ctx, userID)
		if err == nil && idx < len(lastIDs) {
			if id, parseErr := uuid.Parse(lastIDs[idx]); parseErr == nil {
				return s.catalog.GetProduct(ctx, id)
			}
		}
	}

	if id, err := uuid.Parse(ref); err == nil {
		return s.catalog.GetProduct(ctx, id)
	}

	if product, err := s.catalog.GetProductBySKU(ctx, ref); err == nil {
		return product, nil
	} else if !catalog.IsProductNotFound(err) {
		return nil, err
	}

	products, _, err := s.catalog.ListProducts(ctx, catalog.ListFilter{Search: ref, ActiveOnly: true, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(products) > 0 {
		return &products[0], nil
	}

	results, err := s.retriever.search(ctx, s.colls.ProductsCollection, ref, activeProductFilters())
	if err != nil {
		return nil, err
	}
	for _, result := range results {
		raw, ok := result.Document.Metadata[index.MetaProductID]
		if !ok {
			continue
		}
		id, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			continue
		}
		return s.catalog.GetProduct(ctx, id)
	}

	return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, &catalog.ProductNotFoundError{Ref: ref}, "resolving product reference")
}

// resolveResults maps retrieved chunks back to catalog rows, deduplicating
// by product and preserving rank order.
func (s *service) resolveResults(ctx context.Context, results []vectorstore.Result) ([]ProductSummary, []string) {
	seen := map[string]bool{}
	summaries := []ProductSummary{}
	ids := []string{}

	for _, result := range results {
		raw, ok := result.Document.Metadata[index.MetaProductID]
		if !ok || seen[raw] {
			continue
		}
		seen[raw] = true

		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		product, err := s.catalog.GetProduct(ctx, id)
		if err != nil {
			// Index can lag behind the catalog; skip rows that vanished.
			continue
		}
		ids = append(ids, raw)
		summaries = append(summaries, ProductSummary{
			ID:       raw,
			Name:     product.Name,
			Brand:    product.Brand,
			Price:    product.Price.StringFixed(2),
			InStock:  product.Stock > 0,
			Category: product.Category,
		})
	}
	return summaries, ids
}

const searchReplyPrompt = `You are a shopping assistant. Using ONLY the product
information below, recommend matching products to the user. Do not invent
products, prices, or details that are not in the context. Keep it short.`

const policyReplyPrompt = `You are a shopping assistant. Answer the user's
question using ONLY the store handbook excerpts below. If the excerpts do
not answer the question, say you don't know. Do not invent policy.`

func (s *service) groundedReply(ctx context.Context, system, query string, contexts []string) (string, error) {
	var b strings.Builder
	b.WriteString("Context:\n")
	for i, text := range contexts {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, text)
	}
	fmt.Fprintf(&b, "\nUser request: %s", query)

	reply, err := s.llm.Complete(ctx, []openai.Message{
		{Role: openai.RoleSystem, Content: system},
		{Role: openai.RoleUser, Content: b.String()},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

func (s *service) apology(ctx context.Context, action enums.Action, what string, err error) (*Reply, string) {
	s.log.Error(ctx, what, err)
	return &Reply{Action: action, Message: apologyMessage}, outcomeDependency
}

// activeProductFilters restricts retrieval to live catalog chunks: inactive
// products can sit in the index (rebuilds may include them) but are never
// surfaced to shoppers.
func activeProductFilters() map[string]string {
	return map[string]string{
		index.MetaSource: index.SourceProduct,
		index.MetaActive: "true",
	}
}

func resultTexts(results []vectorstore.Result) []string {
	texts := make([]string, len(results))
	for i, result := range results {
		texts[i] = result.Document.Text
	}
	return texts
}

func fallbackSearchMessage(summaries []ProductSummary) string {
	if len(summaries) == 0 {
		return "I found some matches but couldn't load their details. Please try again."
	}
	var b strings.Builder
	b.WriteString("Here's what I found:\n")
	for _, p := range summaries {
		fmt.Fprintf(&b, "- %s (%s): %s\n", p.Name, p.Brand, p.Price)
	}
	return strings.TrimRight(b.String(), "\n")
}

var ordinalWords = map[string]int{
	"first": 0, "second": 1, "third": 2, "fourth": 3, "fifth": 4,
}

// parseOrdinal recognizes references like "the second one" or "#2" against
// the most recent search results.
func parseOrdinal(ref string) (int, bool) {
	normalized := strings.ToLower(strings.TrimSpace(ref))
	normalized = strings.TrimPrefix(normalized, "the ")
	normalized = strings.TrimSuffix(normalized, " one")

	if idx, ok := ordinalWords[normalized]; ok {
		return idx, true
	}
	trimmed := strings.TrimPrefix(normalized, "#")
	if n, err := strconv.Atoi(trimmed); err == nil && n >= 1 && n <= 10 {
		return n - 1, true
	}
	return 0, false
}
