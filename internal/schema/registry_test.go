package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestLookup_EveryKindLoads(t *testing.T) {
	for _, k := range Kinds() {
		s, err := Lookup(k)
		require.NoError(t, err, k)
		assert.Equal(t, k, s.Kind())
		assert.NotEmpty(t, s.DisplayName())
		assert.True(t, json.Valid([]byte(s.Text())), "schema text for %s must be literal JSON", k)
	}
}

func TestLookup_UnknownKind(t *testing.T) {
	_, err := Lookup("FlowChart")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"ClassDiagram", ClassDiagram},
		{"classdiagram", ClassDiagram},
		{"UML Sequence Diagram", SequenceDiagram},
		{"usecase", UseCaseDiagram},
		{" erd ", DatabaseDiagram},
		{"state", StateDiagram},
		{"activity", ActivityDiagram},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseKind("gantt")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestValidate_ClassDiagram(t *testing.T) {
	s, err := Lookup(ClassDiagram)
	require.NoError(t, err)

	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{"minimal", `{"diagramName":"Demo","classes":[{"name":"User"}]}`, false},
		{"full relationship", `{"diagramName":"Demo","classes":[{"name":"User"},{"name":"Account"}],
			"relationships":[{"type":"Composition","fromClass":"User","toClass":"Account"}]}`, false},
		{"missing classes", `{"diagramName":"Demo"}`, true},
		{"class without name", `{"diagramName":"Demo","classes":[{"attributes":[]}]}`, true},
		{"relationship outside vocabulary", `{"diagramName":"Demo","classes":[],
			"relationships":[{"type":"Friendship","fromClass":"A","toClass":"B"}]}`, true},
		{"attribute missing type", `{"diagramName":"Demo","classes":[{"name":"User","attributes":[{"name":"id"}]}]}`, true},
		{"not an object", `[1,2,3]`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Validate(decode(t, tt.doc))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_SequenceDiagramEnums(t *testing.T) {
	s, err := Lookup(SequenceDiagram)
	require.NoError(t, err)

	ok := `{"diagramName":"Login","participants":[{"name":"User","type":"actor"}],
		"messages":[{"from":"User","to":"App","message":"login","type":"synchronous"}]}`
	assert.NoError(t, s.Validate(decode(t, ok)))

	bad := `{"diagramName":"Login","participants":[{"name":"User","type":"robot"}],"messages":[]}`
	assert.Error(t, s.Validate(decode(t, bad)))
}

func TestValidate_DatabaseDiagram(t *testing.T) {
	s, err := Lookup(DatabaseDiagram)
	require.NoError(t, err)

	ok := `{"diagramName":"Schema","tables":[{"name":"users","columns":[
		{"name":"id","dataType":"INT","constraints":["PRIMARY KEY","NOT NULL"]}]}]}`
	assert.NoError(t, s.Validate(decode(t, ok)))

	bad := `{"diagramName":"Schema","tables":[{"name":"users","columns":[
		{"name":"id","dataType":"INT","constraints":["SOMETIMES"]}]}]}`
	assert.Error(t, s.Validate(decode(t, bad)))
}
