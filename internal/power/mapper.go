package power

import (
	"strings"
	"unicode"

	"golang.org/x/exp/slices"
)

// AdminPowerStateAttribute is the compute.ServerSettings attribute holding the requested power state.
const AdminPowerStateAttribute = "AdminPowerState"

// ValueMapping maps a power state name as written in configuration to the value Intersight accepts.
type ValueMapping struct {
	FrontEnd string
	BackEnd  string
}

// ValueMap translates power state names for the attribute it populates.
type ValueMap struct {
	Attribute string
	Values    []ValueMapping
}

// DefaultValueMap returns the AdminPowerState value map.
func DefaultValueMap() ValueMap {
	return ValueMap{
		Attribute: AdminPowerStateAttribute,
		Values: []ValueMapping{
			{FrontEnd: "Power On", BackEnd: "PowerOn"},
			{FrontEnd: "Power Off", BackEnd: "PowerOff"},
			{FrontEnd: "Power Cycle", BackEnd: "PowerCycle"},
			{FrontEnd: "Hard Reset", BackEnd: "HardReset"},
			{FrontEnd: "Shutdown", BackEnd: "Shutdown"},
			{FrontEnd: "Reboot CIMC", BackEnd: "Reboot"},
		},
	}
}

// Lookup returns the backend value for the given name.
//
// Names are compared ignoring case and whitespace against both sides of each mapping, so
// "POWERON" and " power on" both resolve to "PowerOn". An unrecognized value is returned as is
// with recognized set to false.
func (m ValueMap) Lookup(value string) (backend string, recognized bool) {
	normalized := normalize(value)

	idx := slices.IndexFunc(m.Values, func(v ValueMapping) bool {
		return normalize(v.FrontEnd) == normalized || normalize(v.BackEnd) == normalized
	})

	if idx < 0 {
		return value, false
	}

	return m.Values[idx].BackEnd, true
}

// FrontEndValues returns the accepted power state names.
func (m ValueMap) FrontEndValues() []string {
	values := make([]string, 0, len(m.Values))
	for _, v := range m.Values {
		values = append(values, v.FrontEnd)
	}

	return values
}

func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}

		return unicode.ToLower(r)
	}, s)
}
