package ai

import (
	"testing"
)

type candidates struct {
	Entities []string `json:"entities"`
}

func TestDecodeAnswer(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "valid json object",
			input: `{"entities":["Acme Ltd"]}`,
			want:  []string{"Acme Ltd"},
		},
		{
			name:  "unquoted key and single quotes",
			input: `{entities: ['Acme Ltd', 'London']}`,
			want:  []string{"Acme Ltd", "London"},
		},
		{
			name:  "trailing comma",
			input: `{"entities":["Acme Ltd",],}`,
			want:  []string{"Acme Ltd"},
		},
		{
			name:  "string encoded",
			input: `"{\"entities\": [\"Barclays plc\"]}"`,
			want:  []string{"Barclays plc"},
		},
		{
			name:  "markdown fence",
			input: "```json\n{\"entities\": [\"Unite the Union\"]}\n```",
			want:  []string{"Unite the Union"},
		},
		{
			name:  "chatter around object",
			input: "Here are the entities:\n{\"entities\": [\"News UK\"]}\nHope this helps.",
			want:  []string{"News UK"},
		},
		{
			name:  "duplicate leading brace",
			input: "{\n{\n  \"entities\": [\"Acme Ltd\"]\n}\n",
			want:  []string{"Acme Ltd"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got candidates
			if err := DecodeAnswer(tc.input, &got); err != nil {
				t.Fatalf("DecodeAnswer() error = %v", err)
			}
			if len(got.Entities) != len(tc.want) {
				t.Fatalf("DecodeAnswer() got = %v, want %v", got.Entities, tc.want)
			}
			for i := range tc.want {
				if got.Entities[i] != tc.want[i] {
					t.Fatalf("DecodeAnswer() entities[%d] = %q, want %q", i, got.Entities[i], tc.want[i])
				}
			}
		})
	}
}

func TestDecodeAnswer_Unrecoverable(t *testing.T) {
	var got candidates
	if err := DecodeAnswer("hello", &got); err == nil {
		t.Fatalf("DecodeAnswer() expected error for unrecoverable input")
	}
}

func TestSchemaFor(t *testing.T) {
	schema := SchemaFor(&candidates{})
	if schema == nil || schema.Properties == nil {
		t.Fatalf("expected object schema, got %+v", schema)
	}
	if _, ok := schema.Properties.Get("entities"); !ok {
		t.Fatalf("expected entities property")
	}
}
