package block

import (
	"fmt"
	"html"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/tbxark/intakeform/types"
)

// Encode renders blocks as tagged text with JSON bodies. Parse(Encode(bs))
// yields bs again for blocks that came out of Parse.
func Encode(blocks []types.Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		p := ToPayload(b)
		body, err := sonic.ConfigStd.MarshalToString(p)
		if err != nil {
			body = "{}"
		}
		parts = append(parts, fmt.Sprintf(`<BLOCK id="%s" type="%s">%s</BLOCK>`,
			html.EscapeString(b.BlockID()), html.EscapeString(p.Type), body))
	}
	return strings.Join(parts, "\n")
}

// EncodeMessage prefixes the encoded blocks with prose.
func EncodeMessage(preface string, blocks []types.Block) string {
	preface = strings.TrimSpace(preface)
	if len(blocks) == 0 {
		return preface
	}
	if preface == "" {
		return Encode(blocks)
	}
	return preface + "\n\n" + Encode(blocks)
}

// EncodePayloads renders loosely-formed payloads (for example from a model
// tool call) and normalizes them through Parse, so the result carries the
// same ids and defaults a renderer would see.
func EncodePayloads(preface string, payloads []Payload) string {
	var sb strings.Builder
	sb.WriteString(preface)
	for _, p := range payloads {
		body, err := sonic.ConfigStd.MarshalToString(p)
		if err != nil {
			body = "{}"
		}
		sb.WriteString("\n<BLOCK>")
		sb.WriteString(body)
		sb.WriteString("</BLOCK>")
	}
	r := Parse(sb.String())
	return EncodeMessage(r.Preface, r.Blocks)
}

// ToPayload converts a block into its JSON body form.
func ToPayload(b types.Block) Payload {
	switch v := b.(type) {
	case *types.DeepIntakeRound:
		return Payload{
			Type:        string(types.KindDeepIntakeRound),
			ID:          v.ID,
			Title:       v.Title,
			Description: v.Description,
			RoundNumber: Number(v.RoundNumber),
			TotalRounds: Number(v.TotalRounds),
			Questions:   toPayloadQuestions(v.Questions),
		}
	case *types.CollectInfo:
		return Payload{
			Type:      string(types.KindCollectInfo),
			ID:        v.ID,
			Title:     v.Title,
			Questions: toPayloadQuestions(v.Questions),
		}
	case *types.QuestionBundle:
		return Payload{
			Type:        string(types.KindQuestionBundle),
			ID:          v.ID,
			Title:       v.Title,
			Description: v.Description,
			Questions:   toPayloadQuestions(v.Questions),
		}
	case *types.NextSteps:
		return Payload{
			Type:        string(types.KindNextSteps),
			ID:          v.ID,
			Title:       v.Title,
			Description: v.Description,
			Options:     toPayloadOptions(v.Options),
		}
	case *types.GenericChoice:
		mode := v.Mode
		if mode == "" {
			mode = types.ChoiceSingle
		}
		opts := make([]PayloadOption, 0, len(v.Options))
		for _, o := range v.Options {
			opts = append(opts, PayloadOption{Label: o})
		}
		return Payload{
			Type:     string(mode),
			ID:       v.ID,
			Question: v.Question,
			Options:  opts,
		}
	default:
		return Payload{}
	}
}

func toPayloadQuestions(qs []types.Question) []PayloadQuestion {
	out := make([]PayloadQuestion, 0, len(qs))
	for _, q := range qs {
		required := q.Required
		out = append(out, PayloadQuestion{
			ID:          q.ID,
			Label:       q.Label,
			Type:        string(q.Type),
			Required:    &required,
			Placeholder: q.Placeholder,
			Options:     toPayloadOptions(q.Options),
		})
	}
	return out
}

func toPayloadOptions(opts []types.Option) []PayloadOption {
	out := make([]PayloadOption, 0, len(opts))
	for _, o := range opts {
		out = append(out, PayloadOption{ID: o.ID, Label: o.Label, Description: o.Description})
	}
	return out
}
