package model

import (
	"strings"
)

type AppKind string

const (
	AppName = "powerctl"

	AppKindRun    AppKind = "run"
	AppKindClient AppKind = "client"

	LogLevelInfo  = "info"
	LogLevelDebug = "debug"
	LogLevelTrace = "trace"

	// MoRefClassID is the ClassId Intersight expects on an embedded object reference.
	MoRefClassID = "mo.MoRef"

	// DefaultOrganization is the Intersight organization objects are scoped to unless configured otherwise.
	DefaultOrganization = "default"
)

// FormFactor is the physical packaging of a server.
type FormFactor string

const (
	FormFactorBlade FormFactor = "Blade"
	FormFactorRack  FormFactor = "Rack"
)

// FormFactors returns the accepted form factor values.
func FormFactors() []FormFactor { return []FormFactor{FormFactorBlade, FormFactorRack} }

// ConnectionType is how a server is attached to Intersight.
type ConnectionType string

const (
	// ConnectionFIAttached servers are managed through a fabric interconnect domain (IMM).
	ConnectionFIAttached ConnectionType = "FI-Attached"
	// ConnectionStandalone servers are managed directly through their CIMC.
	ConnectionStandalone ConnectionType = "Standalone"
)

// ConnectionTypes returns the accepted connection type values.
func ConnectionTypes() []ConnectionType {
	return []ConnectionType{ConnectionFIAttached, ConnectionStandalone}
}

// ServerTarget identifies a server whose power state is to be changed.
//
// Identifier may hold several candidate identifiers separated by spaces, commas or semicolons,
// each of which is matched against the server serial, name, model and user label.
type ServerTarget struct {
	Identifier     string         `mapstructure:"identifier" yaml:"identifier"`
	FormFactor     FormFactor     `mapstructure:"form_factor" yaml:"form_factor"`
	ConnectionType ConnectionType `mapstructure:"connection_type" yaml:"connection_type"`
}

// WithDefaults returns a copy of the target with the default form factor and connection type set
// where they were left empty.
func (t ServerTarget) WithDefaults() ServerTarget {
	if strings.TrimSpace(string(t.FormFactor)) == "" {
		t.FormFactor = FormFactorBlade
	}

	if strings.TrimSpace(string(t.ConnectionType)) == "" {
		t.ConnectionType = ConnectionFIAttached
	}

	return t
}

// ObjectReference is a pointer to an Intersight managed object, embedded in requests
// that refer to another object.
type ObjectReference struct {
	ClassID    string `json:"ClassId" mapstructure:"ClassId"`
	Moid       string `json:"Moid" mapstructure:"Moid"`
	ObjectType string `json:"ObjectType" mapstructure:"ObjectType"`
	Link       string `json:"link" mapstructure:"link"`
}

// ServerRecord holds the attributes of a compute.Blade or compute.RackUnit object used to identify a server.
//
// nolint:govet // fieldalignment struct is easier to read in the current format
type ServerRecord struct {
	Moid       string `mapstructure:"Moid"`
	ObjectType string `mapstructure:"ObjectType"`

	Serial    string `mapstructure:"Serial"`
	Name      string `mapstructure:"Name"`
	Model     string `mapstructure:"Model"`
	UserLabel string `mapstructure:"UserLabel"`

	Organization *ObjectReference `mapstructure:"Organization"`
}

// Identifiers returns the record attributes a ServerTarget identifier is matched against.
func (r *ServerRecord) Identifiers() []string {
	return []string{r.Serial, r.Name, r.Model, r.UserLabel}
}
