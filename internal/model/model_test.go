package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServerTargetWithDefaults(t *testing.T) {
	tests := []struct {
		name   string
		target ServerTarget
		want   ServerTarget
	}{
		{
			"defaults applied",
			ServerTarget{Identifier: "Demo-Blade-Server-1"},
			ServerTarget{Identifier: "Demo-Blade-Server-1", FormFactor: FormFactorBlade, ConnectionType: ConnectionFIAttached},
		},
		{
			"whitespace values replaced",
			ServerTarget{Identifier: "x", FormFactor: " ", ConnectionType: "\t"},
			ServerTarget{Identifier: "x", FormFactor: FormFactorBlade, ConnectionType: ConnectionFIAttached},
		},
		{
			"given values kept",
			ServerTarget{Identifier: "Demo-Rack-Server-1", FormFactor: FormFactorRack, ConnectionType: ConnectionStandalone},
			ServerTarget{Identifier: "Demo-Rack-Server-1", FormFactor: FormFactorRack, ConnectionType: ConnectionStandalone},
		},
		{
			"invalid values are not corrected",
			ServerTarget{Identifier: "x", FormFactor: "Modular", ConnectionType: "Direct"},
			ServerTarget{Identifier: "x", FormFactor: "Modular", ConnectionType: "Direct"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.target.WithDefaults()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestServerRecordIdentifiers(t *testing.T) {
	r := &ServerRecord{Serial: "FCH1", Name: "blade-1", Model: "UCSX-210C-M7", UserLabel: "db01"}
	assert.Equal(t, []string{"FCH1", "blade-1", "UCSX-210C-M7", "db01"}, r.Identifiers())
}
