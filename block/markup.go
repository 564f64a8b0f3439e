package block

import (
	"strings"

	"golang.org/x/net/html"
)

// parseMarkup reads the tag form of a block body into a Payload:
//
//	<Q>text</Q> <TYPE>single|multiple</TYPE>
//	<OPTION id=.. label=.. description=../> or <OPTION>text</OPTION>
//	<QUESTION id=.. label=.. type=.. required=..> <OPTION/>... </QUESTION>
func parseMarkup(body string) Payload {
	var (
		p        Payload
		z        = html.NewTokenizer(strings.NewReader(body))
		question *PayloadQuestion
		option   *PayloadOption
		optText  strings.Builder
		field    string
		text     strings.Builder
	)
	addOption := func(o PayloadOption) {
		if question != nil {
			question.Options = append(question.Options, o)
			return
		}
		p.Options = append(p.Options, o)
	}
	closeOption := func() {
		if option == nil {
			return
		}
		if option.Label == "" {
			option.Label = strings.TrimSpace(optText.String())
		}
		addOption(*option)
		option = nil
	}
	closeQuestion := func() {
		closeOption()
		if question == nil {
			return
		}
		p.Questions = append(p.Questions, *question)
		question = nil
	}
	setField := func(name, value string) {
		value = strings.TrimSpace(value)
		switch name {
		case "q", "label":
			if question != nil {
				question.Label = value
			} else {
				p.Question = value
			}
		case "type":
			if question != nil {
				question.Type = value
			} else {
				p.Mode = value
			}
		case "title":
			p.Title = value
		case "description":
			p.Description = value
		}
	}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			closeQuestion()
			return p
		case html.TextToken:
			switch {
			case option != nil:
				optText.Write(z.Text())
			case field != "":
				text.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := string(z.Raw())
			name, hasAttr := z.TagName()
			tag := string(name)
			z.NextIsNotRawText()
			attrs := readAttrs(z, hasAttr, tok)
			switch tag {
			case "question":
				closeQuestion()
				question = &PayloadQuestion{
					ID:          attr(attrs, "id"),
					Label:       attr(attrs, "label", "text"),
					Type:        attr(attrs, "type"),
					Required:    parseRequired(attrs),
					Placeholder: attr(attrs, "placeholder"),
				}
				if tt == html.SelfClosingTagToken {
					closeQuestion()
				}
			case "option":
				closeOption()
				option = &PayloadOption{
					ID:          attr(attrs, "id", "value"),
					Label:       attr(attrs, "label"),
					Description: attr(attrs, "description"),
				}
				optText.Reset()
				if tt == html.SelfClosingTagToken {
					closeOption()
				}
			case "q", "label", "type", "title", "description":
				field = tag
				text.Reset()
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch tag := string(name); tag {
			case "option":
				closeOption()
			case "question":
				closeQuestion()
			case field:
				setField(field, text.String())
				field = ""
			}
		}
	}
}

func parseRequired(attrs map[string]string) *bool {
	v, ok := attrs["required"]
	if !ok {
		return nil
	}
	var b bool
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "false", "0", "no", "off":
		b = false
	default:
		b = true
	}
	return &b
}
