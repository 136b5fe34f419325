package pin

import (
	"fmt"
	"html"
	"strings"
)

// Template holds the HTML fragments the dashboard renders for a pin: one
// for the title cell and one for the value cell.
type Template struct {
	Topic string `json:"topic"`
	Value string `json:"value"`
}

func (p *Pin) render(value any) Template {
	t := Template{
		Topic: p.template.Topic,
		Value: p.template.Value,
	}
	if t.Topic == "" {
		t.Topic = p.topicHTML()
	}
	if t.Value == "" {
		t.Value = p.valueHTML(value)
	}
	return t
}

func (p *Pin) topicHTML() string {
	name := html.EscapeString(p.name)
	if p.namespace == "" {
		return fmt.Sprintf(`<span class="title">%s</span>`, name)
	}
	return fmt.Sprintf(`<span class="namespace">%s</span><span class="title">%s</span>`,
		html.EscapeString(p.namespace), name)
}

func (p *Pin) valueHTML(value any) string {
	disabled := ""
	if !p.writable {
		disabled = " disabled"
	}
	name := html.EscapeString(p.name)

	switch p.kind {
	case KindNumeric:
		return fmt.Sprintf(`<input type="number" class="value" data-pin="%s" value="%v"%s>`, name, value, disabled)
	case KindBoolean:
		checked := ""
		if b, _ := value.(bool); b {
			checked = " checked"
		}
		return fmt.Sprintf(`<input type="checkbox" class="value" data-pin="%s"%s%s>`, name, checked, disabled)
	case KindList:
		items, _ := value.([]string)
		escaped := make([]string, len(items))
		for i, item := range items {
			escaped[i] = html.EscapeString(item)
		}
		return fmt.Sprintf(`<textarea class="value" data-pin="%s" data-type="list"%s>%s</textarea>`,
			name, disabled, strings.Join(escaped, "\n"))
	case KindEnum:
		if len(p.options) == 0 {
			return textInput(name, value, disabled)
		}
		current, _ := value.(string)
		var b strings.Builder
		fmt.Fprintf(&b, `<select class="value" data-pin="%s"%s>`, name, disabled)
		for _, opt := range p.options {
			selected := ""
			if opt == current {
				selected = " selected"
			}
			fmt.Fprintf(&b, `<option value="%[1]s"%[2]s>%[1]s</option>`, html.EscapeString(opt), selected)
		}
		b.WriteString(`</select>`)
		return b.String()
	case KindImage:
		src, _ := value.(string)
		return fmt.Sprintf(`<img class="value" data-pin="%s" src="%s">`, name, html.EscapeString(src))
	case KindEvent:
		return fmt.Sprintf(`<button class="value trigger" data-pin="%s"%s>Trigger</button>`, name, disabled)
	default:
		return textInput(name, value, disabled)
	}
}

func textInput(name string, value any, disabled string) string {
	s, _ := value.(string)
	return fmt.Sprintf(`<input type="text" class="value" data-pin="%s" value="%s"%s>`, name, html.EscapeString(s), disabled)
}
