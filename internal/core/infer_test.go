package core

import (
	"reflect"
	"testing"
)

func TestInferType(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   ColumnType
	}{
		{"numbers", []string{"1", "2", "3.5"}, TypeNumber},
		{"negative and leading dot", []string{"-4", ".5", "-.25"}, TypeNumber},
		{"booleans", []string{"true", "false"}, TypeBoolean},
		{"booleans any case", []string{"TRUE", "False"}, TypeBoolean},
		{"number and boolean", []string{"1", "true"}, TypeMixed},
		{"strings", []string{"hello", "1e5", "1."}, TypeString},
		{"json objects", []string{`{"a":1}`, `{}`}, TypeJSON},
		{"arrays", []string{`[1,2]`, `[]`}, TypeArray},
		{"objects and arrays", []string{`{"a":1}`, `[1]`}, TypeJSON},
		{"invalid json is string", []string{`{not json}`}, TypeString},
		{"empty values ignored", []string{"", "7", ""}, TypeNumber},
		{"all empty", []string{"", ""}, TypeNull},
		{"no values", nil, TypeNull},
		{"json and string", []string{`{"a":1}`, "x"}, TypeMixed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferType(tt.values); got != tt.want {
				t.Errorf("InferType(%q) = %s, want %s", tt.values, got, tt.want)
			}
			if again := InferType(tt.values); again != tt.want {
				t.Errorf("second InferType(%q) = %s, want %s", tt.values, again, tt.want)
			}
		})
	}
}

func TestProfileColumns(t *testing.T) {
	table := Parse("prompt,score,tags\nhi,1,\nhi,2,\nyo,,\"[\"\"a\"\"]\"\nhey,4,\nhm,5,\nok,6,\n", true)
	profiles := ProfileColumns(table)

	if len(profiles) != 3 {
		t.Fatalf("got %d profiles, want 3", len(profiles))
	}

	prompt := profiles[0]
	if prompt.Name != "prompt" || prompt.Type != TypeString {
		t.Errorf("prompt profile = %+v", prompt)
	}
	if prompt.UniqueCount != 5 {
		t.Errorf("prompt UniqueCount = %d, want 5", prompt.UniqueCount)
	}
	if !reflect.DeepEqual(prompt.SampleValues, []string{"hi", "hi", "yo", "hey", "hm"}) {
		t.Errorf("prompt SampleValues = %q", prompt.SampleValues)
	}

	score := profiles[1]
	if score.Type != TypeNumber || score.NullCount != 1 || score.UniqueCount != 5 {
		t.Errorf("score profile = %+v", score)
	}

	tags := profiles[2]
	if tags.Type != TypeArray || tags.NullCount != 5 || tags.UniqueCount != 1 {
		t.Errorf("tags profile = %+v", tags)
	}
}

func TestProfileColumns_TypeUsesFirstHundredValues(t *testing.T) {
	content := "v\n"
	for i := 0; i < MaxTypeSamples; i++ {
		content += "1\n"
	}
	content += "text\n"

	profiles := ProfileColumns(Parse(content, true))
	if profiles[0].Type != TypeNumber {
		t.Errorf("Type = %s, want number", profiles[0].Type)
	}
	if profiles[0].UniqueCount != 2 {
		t.Errorf("UniqueCount = %d, want 2", profiles[0].UniqueCount)
	}
}

func TestProfileColumns_Nil(t *testing.T) {
	if got := ProfileColumns(nil); got != nil {
		t.Errorf("ProfileColumns(nil) = %v, want nil", got)
	}
}
