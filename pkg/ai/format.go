package ai

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonrepair"
)

// SchemaFor reflects the JSON schema of out, which may be a pointer.
// References are inlined since structured output endpoints reject $ref.
func SchemaFor(out any) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	t := reflect.TypeOf(out)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return reflector.ReflectFromType(t)
}

// trimAnswer cuts markdown fences and any chatter around the outermost
// JSON object.
func trimAnswer(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start > 0 && end > start {
		s = s[start : end+1]
	}
	// "{\n{ ... }" happens with some small local models.
	if rest, ok := strings.CutPrefix(s, "{"); ok && strings.HasPrefix(strings.TrimSpace(rest), "{") {
		s = strings.TrimSpace(rest)
	}
	return s
}

// DecodeAnswer decodes a model answer into out. Answers that are
// string encoded, fenced or syntactically broken are repaired first.
func DecodeAnswer(content string, out any) error {
	content = strings.TrimSpace(content)
	if err := json.Unmarshal([]byte(content), out); err == nil {
		return nil
	}

	var inner string
	if err := json.Unmarshal([]byte(content), &inner); err == nil {
		content = strings.TrimSpace(inner)
		if err := json.Unmarshal([]byte(content), out); err == nil {
			return nil
		}
	}

	content = trimAnswer(content)
	repaired, err := jsonrepair.JSONRepair(content)
	if err != nil {
		return fmt.Errorf("repair model answer: %w (answer: %s)", err, content)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("decode model answer: %w (repaired: %s)", err, repaired)
	}
	return nil
}
