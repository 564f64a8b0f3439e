package block

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tbxark/intakeform/types"
)

func build(index int, r region) types.Block {
	id := attr(r.attrs, "id")
	if !r.closed {
		return degrade(id)
	}

	body := strings.TrimSpace(r.body)
	var p Payload
	if strings.HasPrefix(body, "{") {
		decoded, err := decodePayload(body)
		if err != nil {
			return degrade(id)
		}
		p = decoded
	} else {
		p = parseMarkup(body)
	}
	mergeAttrs(&p, r.attrs)
	if id == "" {
		id = strings.TrimSpace(p.ID)
	}

	tag := attr(r.attrs, "type")
	if tag == "" {
		tag = p.Type
	}
	kind, ok := classify(tag)
	if !ok {
		return degrade(id)
	}

	switch kind {
	case types.KindDeepIntakeRound:
		qs := buildQuestions(p.Questions, false)
		if len(qs) == 0 {
			return degrade(id)
		}
		return &types.DeepIntakeRound{
			ID:          id,
			Title:       p.Title,
			Description: p.Description,
			RoundNumber: int(p.RoundNumber),
			TotalRounds: int(p.TotalRounds),
			Questions:   qs,
		}
	case types.KindCollectInfo:
		qs := buildQuestions(p.Questions, false)
		if len(qs) == 0 {
			return degrade(id)
		}
		return &types.CollectInfo{ID: id, Title: p.Title, Questions: qs}
	case types.KindQuestionBundle:
		qs := buildQuestions(p.Questions, true)
		if len(qs) == 0 {
			return degrade(id)
		}
		return &types.QuestionBundle{ID: id, Title: p.Title, Description: p.Description, Questions: qs}
	case types.KindNextSteps:
		opts := buildOptions(p.Options)
		if len(opts) == 0 {
			return degrade(id)
		}
		return &types.NextSteps{ID: id, Title: p.Title, Description: p.Description, Options: opts}
	default:
		return buildGeneric(id, tag, p)
	}
}

func degrade(id string) types.Block {
	return &types.GenericChoice{ID: id, Options: []string{}, Mode: types.ChoiceSingle}
}

// mergeAttrs lets delimiter attributes override body fields.
func mergeAttrs(p *Payload, attrs map[string]string) {
	if v := attr(attrs, "title"); v != "" {
		p.Title = v
	}
	if v := attr(attrs, "description"); v != "" {
		p.Description = v
	}
	if v := attr(attrs, "question"); v != "" {
		p.Question = v
	}
	if v := attr(attrs, "mode"); v != "" {
		p.Mode = v
	}
	if v := attr(attrs, "round", "round_number", "roundnumber"); v != "" {
		p.RoundNumber = atoi(v)
	}
	if v := attr(attrs, "total", "total_rounds", "totalrounds"); v != "" {
		p.TotalRounds = atoi(v)
	}
}

func atoi(s string) Number {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return Number(n)
}

// classify maps a type tag to a block kind. Plain choice tags and a missing
// tag mean GenericChoice; anything else is unrecognized.
func classify(tag string) (types.Kind, bool) {
	t := strings.ToLower(strings.TrimSpace(tag))
	t = strings.TrimPrefix(t, "onboarding_")
	switch t {
	case "deep_intake_round", "deep_intake":
		return types.KindDeepIntakeRound, true
	case "collect_info":
		return types.KindCollectInfo, true
	case "next_steps":
		return types.KindNextSteps, true
	case "question_bundle":
		return types.KindQuestionBundle, true
	case "", "single", "multiple", "choice", "generic_choice":
		return types.KindGenericChoice, true
	default:
		return "", false
	}
}

func buildGeneric(id, tag string, p Payload) types.Block {
	mode := types.ChoiceSingle
	for _, m := range []string{p.Mode, tag} {
		switch strings.ToLower(strings.TrimSpace(m)) {
		case "multiple", "multi", "multiple_choice":
			mode = types.ChoiceMultiple
		}
	}
	opts := make([]string, 0, len(p.Options))
	for _, o := range p.Options {
		label := strings.TrimSpace(o.Label)
		if label == "" {
			label = strings.TrimSpace(o.ID)
		}
		if label == "" {
			continue
		}
		opts = append(opts, label)
	}
	return &types.GenericChoice{
		ID:       id,
		Question: strings.TrimSpace(p.Question),
		Options:  opts,
		Mode:     mode,
	}
}

func buildQuestions(in []PayloadQuestion, bundle bool) []types.Question {
	out := make([]types.Question, 0, len(in))
	seen := make(map[string]bool, len(in))
	for i, pq := range in {
		id := strings.TrimSpace(pq.ID)
		if id == "" || seen[id] {
			id = uniqueID(fmt.Sprintf("q_%d", i), seen)
		}
		seen[id] = true

		label := strings.TrimSpace(pq.Label)
		if label == "" {
			label = id
		}
		q := types.Question{
			ID:          id,
			Label:       label,
			Required:    pq.Required == nil || *pq.Required,
			Type:        questionType(pq.Type),
			Placeholder: strings.TrimSpace(pq.Placeholder),
		}
		if bundle {
			q.Type = types.SingleChoice
			q.Required = true
		}
		if q.Type != types.Text {
			q.Options = buildOptions(pq.Options)
		}
		out = append(out, q)
	}
	return out
}

func questionType(s string) types.QuestionType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "multiple_choice", "multiple", "multi", "multi_choice", "checkbox":
		return types.MultipleChoice
	case "text", "textarea", "free_text", "input":
		return types.Text
	default:
		return types.SingleChoice
	}
}

// buildOptions applies the id/label fallbacks and drops options that have
// neither, and repeated ids.
func buildOptions(in []PayloadOption) []types.Option {
	out := make([]types.Option, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, po := range in {
		id := strings.TrimSpace(po.ID)
		label := strings.TrimSpace(po.Label)
		if id == "" {
			id = label
		}
		if label == "" {
			label = id
		}
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, types.Option{ID: id, Label: label, Description: strings.TrimSpace(po.Description)})
	}
	return out
}

// assignBlockIDs gives every block a unique id, falling back to its
// position for missing or repeated ones.
func assignBlockIDs(blocks []types.Block) {
	used := make(map[string]bool, len(blocks))
	for i, b := range blocks {
		id := b.BlockID()
		if id == "" || used[id] {
			id = uniqueID(fmt.Sprintf("block_%d", i), used)
			setID(b, id)
		}
		used[id] = true
	}
}

func uniqueID(base string, used map[string]bool) string {
	id := base
	for n := 1; used[id]; n++ {
		id = fmt.Sprintf("%s_%d", base, n)
	}
	return id
}

func setID(b types.Block, id string) {
	switch v := b.(type) {
	case *types.DeepIntakeRound:
		v.ID = id
	case *types.CollectInfo:
		v.ID = id
	case *types.NextSteps:
		v.ID = id
	case *types.QuestionBundle:
		v.ID = id
	case *types.GenericChoice:
		v.ID = id
	}
}
