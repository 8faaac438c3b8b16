package chunk

import "testing"

func TestSplitMarkdownByHeaders(t *testing.T) {
	doc := `# Returns

General returns text.

## Window

Items may be returned within 30 days.

### Exceptions

Final sale items are excluded.

# Shipping

We ship everywhere.
`

	sections := SplitMarkdownByHeaders(doc)
	if len(sections) != 4 {
		t.Fatalf("expected 4 sections, got %d: %+v", len(sections), sections)
	}

	if sections[0].Headers["h1"] != "Returns" {
		t.Fatalf("unexpected headers for section 0: %v", sections[0].Headers)
	}
	if sections[0].Content != "General returns text." {
		t.Fatalf("unexpected content for section 0: %q", sections[0].Content)
	}

	if sections[1].Headers["h1"] != "Returns" || sections[1].Headers["h2"] != "Window" {
		t.Fatalf("unexpected headers for section 1: %v", sections[1].Headers)
	}

	sec := sections[2]
	if sec.Headers["h1"] != "Returns" || sec.Headers["h2"] != "Window" || sec.Headers["h3"] != "Exceptions" {
		t.Fatalf("unexpected headers for section 2: %v", sec.Headers)
	}

	if sections[3].Headers["h1"] != "Shipping" {
		t.Fatalf("h1 should reset at a new top-level header: %v", sections[3].Headers)
	}
	if _, ok := sections[3].Headers["h2"]; ok {
		t.Fatalf("h2 should be cleared at a new h1: %v", sections[3].Headers)
	}
}

func TestSplitMarkdownPreambleHasNoHeaders(t *testing.T) {
	sections := SplitMarkdownByHeaders("intro text before any header\n\n# First\n\nbody")
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if len(sections[0].Headers) != 0 {
		t.Fatalf("preamble should carry no header metadata: %v", sections[0].Headers)
	}
}

func TestSplitMarkdownIgnoresDeepHeaders(t *testing.T) {
	sections := SplitMarkdownByHeaders("# Top\n\n#### deep header stays inline\n\nbody")
	if len(sections) != 1 {
		t.Fatalf("expected a single section, got %d", len(sections))
	}
	if sections[0].Headers["h1"] != "Top" {
		t.Fatalf("unexpected headers: %v", sections[0].Headers)
	}
}

func TestParseHeaderRequiresSpace(t *testing.T) {
	if _, _, ok := parseHeader("#NoSpace"); ok {
		t.Fatal("#NoSpace should not parse as a header")
	}
	if level, text, ok := parseHeader("  ## Trimmed "); !ok || level != 2 || text != "Trimmed" {
		t.Fatalf("unexpected parse result: %d %q %v", level, text, ok)
	}
}
