package profile

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/tbxark/intakeform/types"
)

const (
	OperationAdd     = "add"
	OperationRemove  = "remove"
	OperationReplace = "replace"
)

type Operation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// AllowedPaths is the set of pointers a profile patch may touch. "*"
// matches one segment, "-" an array append.
var AllowedPaths = map[string]bool{
	"/answers":      true,
	"/answers/*":    true,
	"/answers/*/*":  true,
	"/selections":   true,
	"/selections/-": true,
}

// AcceptOps turns a submission into replace operations, creating the block
// object first when the profile has none.
func AcceptOps(p Profile, sub types.BatchSubmission) []Operation {
	if len(sub.Answers) == 0 {
		return nil
	}
	blockPath := "/answers/" + escapePointer(sub.BlockID)
	var ops []Operation
	if _, ok := p.Answers[sub.BlockID]; !ok {
		ops = append(ops, Operation{Op: OperationAdd, Path: blockPath, Value: map[string]any{}})
	}
	ids := make([]string, 0, len(sub.Answers))
	for id := range sub.Answers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		ops = append(ops, Operation{
			Op:    OperationReplace,
			Path:  blockPath + "/" + escapePointer(id),
			Value: sub.Answers[id],
		})
	}
	return ops
}

func ChooseOps(sel types.OptionSelection) []Operation {
	return []Operation{{
		Op:   OperationAdd,
		Path: "/selections/-",
		Value: Selection{
			BlockID:     sel.BlockID,
			OptionID:    sel.OptionID,
			Elaboration: sel.Elaboration,
		},
	}}
}

// Apply validates ops against AllowedPaths and applies them to a copy of p.
func Apply(p Profile, ops []Operation) (Profile, error) {
	if len(ops) == 0 {
		return p, nil
	}
	if err := Validate(ops, AllowedPaths); err != nil {
		return p, err
	}
	current, err := sonic.Marshal(normalize(p))
	if err != nil {
		return p, fmt.Errorf("failed to marshal profile: %w", err)
	}
	ops = FixOperations(current, ops)

	patchJSON, err := sonic.Marshal(ops)
	if err != nil {
		return p, fmt.Errorf("failed to marshal patch operations: %w", err)
	}
	patch, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return p, fmt.Errorf("failed to decode patch: %w", err)
	}
	modified, err := patch.Apply(current)
	if err != nil {
		return p, fmt.Errorf("failed to apply patch: %w", err)
	}
	var out Profile
	if err := sonic.Unmarshal(modified, &out); err != nil {
		return p, fmt.Errorf("patch produced an invalid profile: %w", err)
	}
	return normalize(out), nil
}

// FixOperations downgrades replace to add when the target is missing and
// drops removals of missing targets.
func FixOperations(current []byte, ops []Operation) []Operation {
	var doc any
	if err := sonic.Unmarshal(current, &doc); err != nil {
		return ops
	}
	fixed := make([]Operation, 0, len(ops))
	for _, op := range ops {
		switch op.Op {
		case OperationReplace:
			if !pathExists(doc, op.Path) {
				op.Op = OperationAdd
			}
			fixed = append(fixed, op)
		case OperationRemove:
			if pathExists(doc, op.Path) {
				fixed = append(fixed, op)
			}
		default:
			fixed = append(fixed, op)
		}
	}
	return fixed
}

// Diff returns the operations that bring current up to seed. Zero values in
// seed are skipped.
func Diff(current, seed Profile) []Operation {
	var ops []Operation
	blocks := make([]string, 0, len(seed.Answers))
	for id := range seed.Answers {
		blocks = append(blocks, id)
	}
	sort.Strings(blocks)
	for _, id := range blocks {
		answers := seed.Answers[id]
		if len(answers) == 0 {
			continue
		}
		sub := types.BatchSubmission{BlockID: id, Answers: map[string]types.Answer{}}
		for q, a := range answers {
			if have, ok := current.Answer(id, q); ok && have.Equal(a) {
				continue
			}
			if a.Empty() {
				continue
			}
			sub.Answers[q] = a
		}
		ops = append(ops, AcceptOps(current, sub)...)
	}
	for _, s := range seed.Selections[min(len(current.Selections), len(seed.Selections)):] {
		ops = append(ops, ChooseOps(types.OptionSelection{BlockID: s.BlockID, OptionID: s.OptionID, Elaboration: s.Elaboration})...)
	}
	return ops
}

// Seed builds a fresh profile from an initial one.
func Seed(initial Profile) (Profile, error) {
	return Apply(New(), Diff(New(), initial))
}

func normalize(p Profile) Profile {
	if p.Answers == nil {
		p.Answers = map[string]map[string]types.Answer{}
	}
	if p.Selections == nil {
		p.Selections = []Selection{}
	}
	return p
}

func pathExists(doc any, path string) bool {
	if path == "" {
		return true
	}
	if !strings.HasPrefix(path, "/") {
		return false
	}
	cur := doc
	for _, token := range strings.Split(path[1:], "/") {
		token = unescapePointer(token)
		switch node := cur.(type) {
		case map[string]any:
			value, ok := node[token]
			if !ok {
				return false
			}
			cur = value
		case []any:
			index, err := strconv.Atoi(token)
			if err != nil || index < 0 || index >= len(node) {
				return false
			}
			cur = node[index]
		default:
			return false
		}
	}
	return true
}

func escapePointer(token string) string {
	return strings.ReplaceAll(strings.ReplaceAll(token, "~", "~0"), "/", "~1")
}

func unescapePointer(token string) string {
	return strings.ReplaceAll(strings.ReplaceAll(token, "~1", "/"), "~0", "~")
}
