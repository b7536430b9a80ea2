package fixtures

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/metal-toolbox/powerctl/internal/intersight"
)

const (
	BaseURL = "https://www.intersight.com/api/v1"

	AccountName = "acme-lab"

	OrgDefaultMoid     = "5ddea1e16972652d32b6493a"
	OrgEngineeringMoid = "5ddea1e16972652d32b6493b"

	Blade1Moid = "63c9f2c576752d3101a5a7d1"
	Blade2Moid = "63c9f2c576752d3101a5a7d2"
	Rack1Moid  = "63c9f2c576752d3101a5a7e1"

	Blade1SettingsMoid    = "63c9f2c676752d3101a5a8d1"
	Blade1EngSettingsMoid = "63c9f2c676752d3101a5a8d9"
	Blade2SettingsMoid    = "63c9f2c676752d3101a5a8d2"
	Rack1SettingsMoid     = "63c9f2c676752d3101a5a8e1"

	AccountsPath         = "/iam/Accounts"
	OrganizationsPath    = "/organization/Organizations?$top=1000"
	BladesFIPath         = "/compute/Blades?$top=1000&$filter=ManagementMode%20eq%20%27Intersight%27"
	BladesStandalonePath = "/compute/Blades?$top=1000&$filter=ManagementMode%20eq%20%27IntersightStandalone%27"
	RacksFIPath          = "/compute/RackUnits?$top=1000&$filter=ManagementMode%20eq%20%27Intersight%27"
	RacksStandalonePath  = "/compute/RackUnits?$top=1000&$filter=ManagementMode%20eq%20%27IntersightStandalone%27"
	ServerSettingsPath   = "/compute/ServerSettings?$top=1000"
)

var (
	accountsJSON = `{
  "ObjectType": "iam.Account.List",
  "Results": [
    {"ClassId": "iam.Account", "Moid": "5dde9f6e6972652d32b5e3a0", "Name": "acme-lab", "ObjectType": "iam.Account", "Status": "Active"}
  ]
}`

	organizationsJSON = `{
  "ObjectType": "organization.Organization.List",
  "Results": [
    {"ClassId": "organization.Organization", "Moid": "5ddea1e16972652d32b6493b", "Name": "engineering", "ObjectType": "organization.Organization"},
    {"ClassId": "organization.Organization", "Moid": "5ddea1e16972652d32b6493a", "Name": "default", "ObjectType": "organization.Organization"}
  ]
}`

	bladesFIJSON = `{
  "ObjectType": "compute.Blade.List",
  "Results": [
    {
      "ClassId": "compute.Blade",
      "Moid": "63c9f2c576752d3101a5a7d1",
      "ObjectType": "compute.Blade",
      "ManagementMode": "Intersight",
      "Name": "Demo-Blade-Server-1",
      "Serial": "FCH2511711A",
      "Model": "UCSX-210C-M6",
      "UserLabel": "",
      "OperPowerState": "on",
      "SlotId": 1
    },
    {
      "ClassId": "compute.Blade",
      "Moid": "63c9f2c576752d3101a5a7d2",
      "ObjectType": "compute.Blade",
      "ManagementMode": "Intersight",
      "Name": "Demo-Blade-Server-2",
      "Serial": "FCH2511722B",
      "Model": "UCSX-210C-M6",
      "UserLabel": "db-primary",
      "OperPowerState": "off",
      "SlotId": 2
    }
  ]
}`

	racksStandaloneJSON = `{
  "ObjectType": "compute.RackUnit.List",
  "Results": [
    {
      "ClassId": "compute.RackUnit",
      "Moid": "63c9f2c576752d3101a5a7e1",
      "ObjectType": "compute.RackUnit",
      "ManagementMode": "IntersightStandalone",
      "Name": "Demo-Rack-Server-1",
      "Serial": "WZP23420ABC",
      "Model": "UCSC-C220-M5SX",
      "UserLabel": "lab-rack",
      "OperPowerState": "on",
      "ServerId": 0
    }
  ]
}`

	emptyListJSON = `{"ObjectType": "mo.AggregateTransform", "Results": []}`
)

// serverSettingsJSON lists the settings objects, the engineering scoped entry for blade 1 is
// listed first so organization scoping is exercised.
func serverSettingsJSON() string {
	settings := func(moid, orgMoid, serverMoid, serverType, segment string) string {
		return fmt.Sprintf(`{
      "ClassId": "compute.ServerSetting",
      "Moid": %q,
      "ObjectType": "compute.ServerSetting",
      "AdminPowerState": "Policy",
      "Organization": {"ClassId": "mo.MoRef", "Moid": %q, "ObjectType": "organization.Organization", "link": "%s/organization/Organizations/%s"},
      "Server": {"ClassId": "mo.MoRef", "Moid": %q, "ObjectType": %q, "link": "%s/compute/%s/%s"}
    }`, moid, orgMoid, BaseURL, orgMoid, serverMoid, serverType, BaseURL, segment, serverMoid)
	}

	return `{"ObjectType": "compute.ServerSetting.List", "Results": [` +
		strings.Join(
			[]string{
				settings(Blade1EngSettingsMoid, OrgEngineeringMoid, Blade1Moid, "compute.Blade", "Blades"),
				settings(Blade1SettingsMoid, OrgDefaultMoid, Blade1Moid, "compute.Blade", "Blades"),
				settings(Blade2SettingsMoid, OrgDefaultMoid, Blade2Moid, "compute.Blade", "Blades"),
				settings(Rack1SettingsMoid, OrgDefaultMoid, Rack1Moid, "compute.RackUnit", "RackUnits"),
			},
			",",
		) + `]}`
}

// FakeCall is a request received by FakeIntersight.
type FakeCall struct {
	Method string
	Path   string
	Body   interface{}
}

// FakeIntersight implements the intersight.Caller interface over canned API responses.
//
// Unknown paths return a 404 error like the API client does, POSTs to a settings object
// echo the submitted attributes back.
type FakeIntersight struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     []FakeCall
}

// NewFakeIntersight returns a FakeIntersight serving an account with two FI-Attached blades,
// one standalone rack server and their server settings.
func NewFakeIntersight() *FakeIntersight {
	f := &FakeIntersight{
		responses: map[string]string{},
		errs:      map[string]error{},
	}

	f.SetResponse(http.MethodGet, AccountsPath, accountsJSON)
	f.SetResponse(http.MethodGet, OrganizationsPath, organizationsJSON)
	f.SetResponse(http.MethodGet, BladesFIPath, bladesFIJSON)
	f.SetResponse(http.MethodGet, BladesStandalonePath, emptyListJSON)
	f.SetResponse(http.MethodGet, RacksFIPath, emptyListJSON)
	f.SetResponse(http.MethodGet, RacksStandalonePath, racksStandaloneJSON)
	f.SetResponse(http.MethodGet, ServerSettingsPath, serverSettingsJSON())

	return f
}

func key(method, path string) string {
	return method + " " + path
}

// SetResponse sets the JSON body returned for the method and path.
func (f *FakeIntersight) SetResponse(method, path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.responses[key(method, path)] = body
}

// SetError sets the error returned for the method and path.
func (f *FakeIntersight) SetError(method, path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.errs[key(method, path)] = err
}

// Calls returns the requests received so far.
func (f *FakeIntersight) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]FakeCall{}, f.calls...)
}

// CallCount returns the number of requests received for the method and path.
func (f *FakeIntersight) CallCount(method, path string) int {
	var count int

	for _, c := range f.Calls() {
		if c.Method == method && c.Path == path {
			count++
		}
	}

	return count
}

// Call implements the intersight.Caller interface.
func (f *FakeIntersight) Call(_ context.Context, method, path string, body interface{}) (*intersight.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, FakeCall{Method: method, Path: path, Body: body})

	if err, exists := f.errs[key(method, path)]; exists {
		return nil, err
	}

	respBody, exists := f.responses[key(method, path)]
	if !exists && method == http.MethodPost && strings.HasPrefix(path, "/compute/ServerSettings/") {
		echo := map[string]interface{}{"Moid": strings.TrimPrefix(path, "/compute/ServerSettings/")}

		if attrs, ok := body.(map[string]interface{}); ok {
			for k, v := range attrs {
				echo[k] = v
			}
		}

		b, _ := json.Marshal(echo)
		respBody, exists = string(b), true
	}

	if !exists {
		return &intersight.Response{StatusCode: http.StatusNotFound}, errors.Wrap(
			intersight.ErrUnexpectedStatus,
			fmt.Sprintf("%s %s: 404 Not Found", method, path),
		)
	}

	resp := &intersight.Response{StatusCode: http.StatusOK}
	if err := json.Unmarshal([]byte(respBody), &resp.Data); err != nil {
		return resp, errors.Wrap(intersight.ErrResponseDecode, err.Error())
	}

	return resp, nil
}

// StatusError returns the error the API client returns on a non 2xx response.
func StatusError(status int) error {
	return errors.Wrap(intersight.ErrUnexpectedStatus, fmt.Sprintf("%d %s", status, http.StatusText(status)))
}
