package index

import (
	"fmt"
	"strings"

	"github.com/jerrybuks/agentic-ecommerce/pkg/chunk"
	"github.com/jerrybuks/agentic-ecommerce/pkg/db/models"
)

// Metadata keys attached to indexed documents. The agent relies on these to
// map retrieved chunks back to catalog rows.
const (
	MetaProductID = "product_id"
	MetaName      = "name"
	MetaSKU       = "sku"
	MetaSource    = "source"
	MetaSection   = "section"
	MetaCategory  = "category"
	MetaBrand     = "brand"
	MetaPrice     = "price"
	MetaActive    = "is_active"
	MetaFeatured  = "is_featured"
	MetaTags      = "tags"
)

// Source values for the MetaSource key.
const (
	SourceProduct  = "product"
	SourceHandbook = "handbook"
)

// productText renders the canonical embedding text for a product. Stock and
// SKU are deliberately excluded: they churn without changing what the
// product is about.
func productText(p *models.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product Name: %s\n", p.Name)
	fmt.Fprintf(&b, "Brand: %s\n", p.Brand)
	fmt.Fprintf(&b, "Category: %s\n", p.Category)
	fmt.Fprintf(&b, "Description: %s\n", p.Description)
	if len(p.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(p.Tags, ", "))
	}
	return b.String()
}

// sectionText flattens a markdown section back into heading-prefixed text so
// the chunk keeps its own context when embedded.
func sectionText(section chunk.Section) string {
	var b strings.Builder
	for _, level := range []string{"h1", "h2", "h3"} {
		if heading, ok := section.Headers[level]; ok && heading != "" {
			b.WriteString(heading)
			b.WriteString("\n")
		}
	}
	b.WriteString(section.Content)
	return b.String()
}

// sectionLabel is the human-readable breadcrumb stored in chunk metadata.
func sectionLabel(section chunk.Section) string {
	parts := []string{}
	for _, level := range []string{"h1", "h2", "h3"} {
		if heading, ok := section.Headers[level]; ok && heading != "" {
			parts = append(parts, heading)
		}
	}
	if len(parts) == 0 {
		return "preamble"
	}
	return strings.Join(parts, " > ")
}
