package block

import (
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// Payload is the JSON body form of a block. It is also the structured
// output an LLM produces when authoring blocks.
type Payload struct {
	Type        string            `json:"type" jsonschema:"required,enum=deep_intake_round,enum=collect_info,enum=next_steps,enum=question_bundle,enum=single,enum=multiple,description=Block variant"`
	ID          string            `json:"id,omitempty" jsonschema:"description=Block id unique within the message"`
	Title       string            `json:"title,omitempty" jsonschema:"description=Heading shown above the block"`
	Description string            `json:"description,omitempty" jsonschema:"description=Short explanation shown under the title"`
	RoundNumber Number            `json:"roundNumber,omitempty" jsonschema:"description=1-based round index of a deep intake round"`
	TotalRounds Number            `json:"totalRounds,omitempty" jsonschema:"description=Total number of deep intake rounds"`
	Question    string            `json:"question,omitempty" jsonschema:"description=Prompt of a plain single/multiple choice block"`
	Mode        string            `json:"mode,omitempty" jsonschema:"enum=single,enum=multiple,description=Selection mode of a plain choice block"`
	Questions   []PayloadQuestion `json:"questions,omitempty" jsonschema:"description=Questions of deep_intake_round, collect_info and question_bundle blocks"`
	Options     []PayloadOption   `json:"options,omitempty" jsonschema:"description=Options of next_steps and plain choice blocks"`
}

type PayloadQuestion struct {
	ID          string          `json:"id,omitempty"`
	Label       string          `json:"label" jsonschema:"required"`
	Type        string          `json:"type,omitempty" jsonschema:"enum=single_choice,enum=multiple_choice,enum=text"`
	Required    *bool           `json:"required,omitempty" jsonschema:"description=Defaults to true"`
	Placeholder string          `json:"placeholder,omitempty"`
	Options     []PayloadOption `json:"options,omitempty"`
}

// PayloadOption accepts either an object or a bare string label.
type PayloadOption struct {
	ID          string `json:"id,omitempty"`
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
}

func (o *PayloadOption) UnmarshalJSON(data []byte) error {
	var label string
	if err := sonic.Unmarshal(data, &label); err == nil {
		*o = PayloadOption{Label: label}
		return nil
	}
	type plain PayloadOption
	var p plain
	if err := sonic.Unmarshal(data, &p); err != nil {
		return err
	}
	*o = PayloadOption(p)
	return nil
}

// Number is an integer that also accepts numeric strings. Anything else
// decodes to zero.
type Number int

func (n *Number) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = Number(int(v))
	return nil
}

func decodePayload(body string) (Payload, error) {
	var p Payload
	if err := sonic.UnmarshalString(body, &p); err != nil {
		return Payload{}, err
	}
	return p, nil
}
