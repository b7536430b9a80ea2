package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metal-toolbox/powerctl/internal/model"
)

func TestParseTargets(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    []model.ServerTarget
		wantErr error
	}{
		{
			"targets key",
			`
targets:
  - identifier: Demo-Blade-Server-1
    form_factor: Blade
    connection_type: FI-Attached
  - identifier: WZP23420ABC
    form_factor: Rack
    connection_type: Standalone
`,
			[]model.ServerTarget{
				{Identifier: "Demo-Blade-Server-1", FormFactor: model.FormFactorBlade, ConnectionType: model.ConnectionFIAttached},
				{Identifier: "WZP23420ABC", FormFactor: model.FormFactorRack, ConnectionType: model.ConnectionStandalone},
			},
			nil,
		},
		{
			"list document with defaults",
			`
- identifier: FCH2511711A
- identifier: lab-rack
  form_factor: Rack
`,
			[]model.ServerTarget{
				{Identifier: "FCH2511711A", FormFactor: model.FormFactorBlade, ConnectionType: model.ConnectionFIAttached},
				{Identifier: "lab-rack", FormFactor: model.FormFactorRack, ConnectionType: model.ConnectionFIAttached},
			},
			nil,
		},
		{"empty document", ``, nil, ErrYamlSource},
		{"no targets", `targets: []`, nil, ErrYamlSource},
		{"scalar document", `foo`, nil, ErrYamlSource},
		{"invalid yaml", "targets: [", nil, ErrYamlSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTargets([]byte(tt.yaml))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.Nil(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestYamlTargets(t *testing.T) {
	file := filepath.Join(t.TempDir(), "targets.yaml")
	require.Nil(t, os.WriteFile(file, []byte("- identifier: Demo-Blade-Server-2\n"), 0o600))

	got, err := NewYamlTargets(file).Targets()
	require.Nil(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Demo-Blade-Server-2", got[0].Identifier)

	_, err = NewYamlTargets(filepath.Join(t.TempDir(), "missing.yaml")).Targets()
	assert.ErrorIs(t, err, ErrYamlSource)
}
