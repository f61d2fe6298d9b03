// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package normalizer

import (
	"fmt"
	"strings"
)

// render dispatches to the §4.1.1 text-rendering rule for a structured-UI
// key. payload is the decoded JSON value carried under that key.
func render(key string, payload any) (string, error) {
	m, _ := payload.(map[string]any)
	switch key {
	case "_quickReplies":
		return renderQuickReplies(m), nil
	case "_buttons":
		return renderButtons(m), nil
	case "_list":
		return renderList(m), nil
	case "_gallery":
		return renderGallery(m), nil
	case "_adaptiveCard":
		return renderAdaptiveCard(m), nil
	default:
		return "", fmt.Errorf("unknown structured key %q", key)
	}
}

func renderQuickReplies(m map[string]any) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(str(m["text"])))
	for _, item := range list(m["quickReplies"]) {
		opt, _ := item.(map[string]any)
		title := strings.TrimSpace(str(opt["title"]))
		if title == "" {
			continue
		}
		line := "- " + title
		if img := strings.TrimSpace(str(opt["imageUrl"])); img != "" {
			line += fmt.Sprintf(" ![image](%s)", img)
		}
		b.WriteString("\n" + line)
	}
	return b.String()
}

func renderButtons(m map[string]any) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(str(m["text"])))
	for _, item := range list(m["buttons"]) {
		btn, _ := item.(map[string]any)
		title := strings.TrimSpace(str(btn["title"]))
		if title == "" {
			continue
		}
		line := "- " + title
		if strings.TrimSpace(str(btn["type"])) == "web_url" {
			if url := strings.TrimSpace(str(btn["url"])); url != "" {
				line += ": " + url
			}
		}
		b.WriteString("\n" + line)
	}
	return b.String()
}

func renderList(m map[string]any) string {
	header := strings.TrimSpace(str(m["header"]))
	if header == "" {
		header = strings.TrimSpace(str(m["text"]))
	}
	var b strings.Builder
	b.WriteString(header)
	for _, item := range list(m["items"]) {
		it, _ := item.(map[string]any)
		title := strings.TrimSpace(str(it["title"]))
		if title == "" {
			continue
		}
		line := "- " + title
		if sub := strings.TrimSpace(str(it["subtitle"])); sub != "" {
			line += ": " + sub
		}
		if img := strings.TrimSpace(str(it["imageUrl"])); img != "" {
			line += fmt.Sprintf(" ![image](%s)", img)
		}
		b.WriteString("\n" + line)
	}
	return b.String()
}

func renderGallery(m map[string]any) string {
	intro := strings.TrimSpace(str(m["text"]))
	if intro == "" {
		intro = "Here are some options:"
	}
	var b strings.Builder
	b.WriteString(intro)
	for _, item := range list(m["items"]) {
		it, _ := item.(map[string]any)
		title := strings.TrimSpace(str(it["title"]))
		if title == "" {
			continue
		}
		line := "- " + title
		if sub := strings.TrimSpace(str(it["subtitle"])); sub != "" {
			line += ": " + sub
		}
		if img := strings.TrimSpace(str(it["imageUrl"])); img != "" {
			line += fmt.Sprintf(" ![image](%s)", img)
		}
		b.WriteString("\n" + line)
	}
	return b.String()
}

// renderAdaptiveCard renders a rich card by depth-first recursion over its
// body and actions.
func renderAdaptiveCard(m map[string]any) string {
	var lines []string
	for _, el := range list(m["body"]) {
		lines = append(lines, renderCardElement(el)...)
	}
	for _, el := range list(m["actions"]) {
		lines = append(lines, renderCardElement(el)...)
	}
	return strings.Join(lines, "\n")
}

func renderCardElement(el any) []string {
	e, _ := el.(map[string]any)
	if e == nil {
		return nil
	}
	switch strings.TrimSpace(str(e["type"])) {
	case "TextBlock":
		if text := strings.TrimSpace(str(e["text"])); text != "" {
			return []string{text}
		}
		return nil
	case "FactSet":
		var lines []string
		for _, f := range list(e["facts"]) {
			fact, _ := f.(map[string]any)
			title := strings.TrimSpace(str(fact["title"]))
			value := strings.TrimSpace(str(fact["value"]))
			if title == "" && value == "" {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s: %s", title, value))
		}
		return lines
	case "Input.Text", "Input.Date", "Input.Number", "Input.Time":
		label := strings.TrimSpace(str(e["label"]))
		placeholder := strings.TrimSpace(str(e["placeholder"]))
		switch {
		case label != "" && placeholder != "":
			return []string{fmt.Sprintf("%s (%s)", label, placeholder)}
		case label != "":
			return []string{label}
		case placeholder != "":
			return []string{placeholder}
		default:
			return nil
		}
	case "Input.ChoiceSet":
		var lines []string
		if label := strings.TrimSpace(str(e["label"])); label != "" {
			lines = append(lines, label)
		}
		for _, c := range list(e["choices"]) {
			choice, _ := c.(map[string]any)
			title := strings.TrimSpace(str(choice["title"]))
			if title == "" {
				continue
			}
			lines = append(lines, "- "+title)
		}
		return lines
	case "Input.Toggle":
		if title := strings.TrimSpace(str(e["title"])); title != "" {
			return []string{title}
		}
		return nil
	case "ColumnSet":
		var lines []string
		for _, col := range list(e["columns"]) {
			c, _ := col.(map[string]any)
			if c == nil {
				continue
			}
			for _, item := range list(c["items"]) {
				lines = append(lines, renderCardElement(item)...)
			}
		}
		return lines
	case "Container":
		var lines []string
		for _, item := range list(e["items"]) {
			lines = append(lines, renderCardElement(item)...)
		}
		return lines
	case "Action.Submit", "Action.OpenUrl", "Action.ShowCard", "Action.Execute":
		title := strings.TrimSpace(str(e["title"]))
		return []string{fmt.Sprintf("[Action: %s]", title)}
	default:
		return nil
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func list(v any) []any {
	l, _ := v.([]any)
	return l
}
