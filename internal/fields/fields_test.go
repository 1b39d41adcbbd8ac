package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilled(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		want  bool
	}{
		{"nil value", Field{Kind: KindText, Value: nil}, false},
		{"text", Field{Kind: KindText, Value: "Berlin"}, true},
		{"blank text", Field{Kind: KindText, Value: "   "}, false},
		{"empty text", Field{Kind: KindText, Value: ""}, false},
		{"date", Field{Kind: KindDate, Value: "2026-09-01"}, true},
		{"blank date", Field{Kind: KindDate, Value: ""}, false},
		{"number", Field{Kind: KindNumber, Value: float64(0)}, true},
		{"number as string", Field{Kind: KindNumber, Value: "42"}, true},
		{"blank number string", Field{Kind: KindNumber, Value: " "}, false},
		{"boolean false still counts", Field{Kind: KindBoolean, Value: false}, true},
		{"boolean true", Field{Kind: KindBoolean, Value: true}, true},
		{"single select", Field{Kind: KindSingleSelect, Value: "full-time"}, true},
		{"blank single select", Field{Kind: KindSingleSelect, Value: ""}, false},
		{"multi select", Field{Kind: KindMultiSelect, Value: []any{"de", "en"}}, true},
		{"empty multi select", Field{Kind: KindMultiSelect, Value: []any{}}, false},
		{"empty multi select strings", Field{Kind: KindMultiSelect, Value: []string{}}, false},
		{"unknown kind non-blank", Field{Kind: "mystery", Value: "x"}, true},
		{"unknown kind blank", Field{Kind: "mystery", Value: ""}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.field.Filled())
		})
	}
}

func TestMissingRequired(t *testing.T) {
	snapshot := []Field{
		{ID: 1, Label: "Salary expectation", Kind: KindNumber, Required: true, Value: "65000"},
		{ID: 2, Label: "Earliest start", Kind: KindDate, Required: true},
		{ID: 3, Label: "Remarks", Kind: KindText, Required: false},
		{ID: 4, Label: "Driver's license", Kind: KindBoolean, Required: true},
	}

	missing := MissingRequired(snapshot)
	assert.Equal(t, []string{"Earliest start", "Driver's license"}, Labels(missing))
}

func TestMissingRequired_Empty(t *testing.T) {
	assert.Nil(t, MissingRequired(nil))
	assert.Nil(t, MissingRequired([]Field{{Label: "Optional", Kind: KindText}}))
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 100, Progress(nil))
	assert.Equal(t, 100, Progress([]Field{{Label: "Optional", Kind: KindText, Required: false}}))

	snapshot := []Field{
		{Kind: KindText, Required: true, Value: "yes"},
		{Kind: KindText, Required: true},
		{Kind: KindText, Required: true},
		{Kind: KindText, Required: false, Value: "ignored"},
	}
	assert.Equal(t, 33, Progress(snapshot))

	snapshot[1].Value = "now filled"
	snapshot[2].Value = "also filled"
	assert.Equal(t, 100, Progress(snapshot))
}
