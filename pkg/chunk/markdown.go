package chunk

import "strings"

// Section is a markdown region under a header trail.
type Section struct {
	// Headers maps level keys ("h1", "h2", "h3") to the nearest enclosing
	// header text for this section.
	Headers map[string]string
	Content string
}

// SplitMarkdownByHeaders partitions a markdown document at #, ## and ###
// headers. Deeper headers stay inside their parent section's content. Text
// before the first header becomes a section with no header metadata.
func SplitMarkdownByHeaders(doc string) []Section {
	lines := strings.Split(doc, "\n")

	var sections []Section
	headers := map[string]string{}
	var body []string

	flush := func() {
		content := strings.TrimSpace(strings.Join(body, "\n"))
		body = body[:0]
		if content == "" {
			return
		}
		snapshot := make(map[string]string, len(headers))
		for k, v := range headers {
			snapshot[k] = v
		}
		sections = append(sections, Section{Headers: snapshot, Content: content})
	}

	for _, line := range lines {
		level, text, ok := parseHeader(line)
		if !ok || level > 3 {
			body = append(body, line)
			continue
		}

		flush()
		switch level {
		case 1:
			headers = map[string]string{"h1": text}
		case 2:
			headers = map[string]string{"h1": headers["h1"], "h2": text}
			if headers["h1"] == "" {
				delete(headers, "h1")
			}
		case 3:
			next := map[string]string{}
			if headers["h1"] != "" {
				next["h1"] = headers["h1"]
			}
			if headers["h2"] != "" {
				next["h2"] = headers["h2"]
			}
			next["h3"] = text
			headers = next
		}
	}
	flush()

	return sections
}

func parseHeader(line string) (int, string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") {
		return 0, "", false
	}
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level >= len(trimmed) || trimmed[level] != ' ' {
		return 0, "", false
	}
	text := strings.TrimSpace(trimmed[level+1:])
	if text == "" {
		return 0, "", false
	}
	return level, text, true
}
