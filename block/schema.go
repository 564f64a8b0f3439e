package block

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/eino-contrib/jsonschema"
)

// PayloadSchema returns the JSON schema of a block body, for prompts that
// ask a model to emit blocks.
func PayloadSchema() (string, error) {
	schema := jsonschema.Reflect(&Payload{})
	schema.Title = "Interactive block"
	schema.Description = "Body of one <BLOCK> region. Question blocks carry questions, next_steps and plain choice blocks carry options."
	data, err := sonic.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON schema: %w", err)
	}
	return string(data), nil
}
