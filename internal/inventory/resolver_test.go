package inventory

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/metal-toolbox/powerctl/internal/fixtures"
	"github.com/metal-toolbox/powerctl/internal/intersight"
	"github.com/metal-toolbox/powerctl/internal/model"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard

	return l
}

func blade1Ref() model.ObjectReference {
	return model.ObjectReference{
		ClassID:    model.MoRefClassID,
		Moid:       fixtures.Blade1Moid,
		ObjectType: "compute.Blade",
		Link:       fixtures.BaseURL + "/compute/Blades/" + fixtures.Blade1Moid,
	}
}

func TestAccountName(t *testing.T) {
	tests := []struct {
		name    string
		resp    *intersight.Response
		err     error
		want    string
		wantErr error
	}{
		{
			"account listed",
			&intersight.Response{
				StatusCode: http.StatusOK,
				Data:       map[string]interface{}{"Results": []interface{}{map[string]interface{}{"Name": "acme-lab"}}},
			},
			nil,
			"acme-lab",
			nil,
		},
		{
			"unauthorized",
			&intersight.Response{StatusCode: http.StatusUnauthorized},
			fixtures.StatusError(http.StatusUnauthorized),
			"",
			ErrAccountAccess,
		},
		{
			"connection refused",
			nil,
			errors.Wrap(intersight.ErrRequest, "connection refused"),
			"",
			ErrAccountAccess,
		},
		{
			"no account listed",
			&intersight.Response{StatusCode: http.StatusOK, Data: map[string]interface{}{"Results": []interface{}{}}},
			nil,
			"",
			ErrAccountAccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			caller := fixtures.NewMockCaller(ctrl)

			caller.EXPECT().
				Call(gomock.Any(), http.MethodGet, AccountsPath, nil).
				Times(1).
				Return(tt.resp, tt.err)

			got, err := NewResolver(caller, testLogger()).AccountName(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.Nil(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMoidByName(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fixtures.FakeIntersight)
		path    string
		object  string
		opts    []LookupOption
		want    string
		wantErr error
	}{
		{
			name:   "organization found",
			path:   OrganizationsPath,
			object: "default",
			want:   fixtures.OrgDefaultMoid,
		},
		{
			name:   "second organization found",
			path:   OrganizationsPath,
			object: "engineering",
			want:   fixtures.OrgEngineeringMoid,
		},
		{
			name:    "name not found",
			path:    OrganizationsPath,
			object:  "finance",
			opts:    []LookupOption{WithObjectType("Organization")},
			wantErr: ErrObjectNotFound,
		},
		{
			name: "empty collection",
			setup: func(f *fixtures.FakeIntersight) {
				f.SetResponse(http.MethodGet, OrganizationsPath, `{"Results": []}`)
			},
			path:    OrganizationsPath,
			object:  "default",
			wantErr: ErrObjectNotFound,
		},
		{
			name:    "collection fetch error",
			path:    "/does/not/Exist",
			object:  "default",
			wantErr: ErrCollectionFetch,
		},
		{
			name: "account unavailable",
			setup: func(f *fixtures.FakeIntersight) {
				f.SetError(http.MethodGet, AccountsPath, fixtures.StatusError(http.StatusForbidden))
			},
			path:    OrganizationsPath,
			object:  "default",
			wantErr: ErrAccountAccess,
		},
		{
			name: "organization scoped objects",
			setup: func(f *fixtures.FakeIntersight) {
				f.SetResponse(http.MethodGet, "/server/Profiles", `{"Results": [
					{"Moid": "p-eng", "Name": "web", "Organization": {"Moid": "`+fixtures.OrgEngineeringMoid+`"}},
					{"Moid": "p-default", "Name": "web", "Organization": {"Moid": "`+fixtures.OrgDefaultMoid+`"}}
				]}`)
			},
			path:   "/server/Profiles",
			object: "web",
			want:   "p-default",
		},
		{
			name: "organization scoped objects in another organization",
			setup: func(f *fixtures.FakeIntersight) {
				f.SetResponse(http.MethodGet, "/server/Profiles", `{"Results": [
					{"Moid": "p-eng", "Name": "web", "Organization": {"Moid": "`+fixtures.OrgEngineeringMoid+`"}},
					{"Moid": "p-default", "Name": "web", "Organization": {"Moid": "`+fixtures.OrgDefaultMoid+`"}}
				]}`)
			},
			path:   "/server/Profiles",
			object: "web",
			opts:   []LookupOption{WithOrganization("engineering")},
			want:   "p-eng",
		},
		{
			name: "organization missing",
			setup: func(f *fixtures.FakeIntersight) {
				f.SetResponse(http.MethodGet, "/server/Profiles", `{"Results": [
					{"Moid": "p-default", "Name": "web", "Organization": {"Moid": "`+fixtures.OrgDefaultMoid+`"}}
				]}`)
			},
			path:    "/server/Profiles",
			object:  "web",
			opts:    []LookupOption{WithOrganization("finance")},
			wantErr: ErrObjectNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := fixtures.NewFakeIntersight()
			if tt.setup != nil {
				tt.setup(fake)
			}

			got, err := NewResolver(fake, testLogger()).MoidByName(context.Background(), tt.path, tt.object, tt.opts...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.Nil(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMoidByAttributes(t *testing.T) {
	blade2Ref := blade1Ref()
	blade2Ref.Moid = fixtures.Blade2Moid
	blade2Ref.Link = fixtures.BaseURL + "/compute/Blades/" + fixtures.Blade2Moid

	tests := []struct {
		name       string
		attributes map[string]interface{}
		opts       []LookupOption
		want       string
		wantErr    error
	}{
		{
			name:       "server settings in default organization",
			attributes: map[string]interface{}{"Server": blade1Ref()},
			want:       fixtures.Blade1SettingsMoid,
		},
		{
			name:       "server settings in engineering organization",
			attributes: map[string]interface{}{"Server": blade1Ref()},
			opts:       []LookupOption{WithOrganization("engineering")},
			want:       fixtures.Blade1EngSettingsMoid,
		},
		{
			name:       "reference given as decoded JSON",
			attributes: map[string]interface{}{"Server": map[string]interface{}{"ClassId": "mo.MoRef", "Moid": fixtures.Blade2Moid, "ObjectType": "compute.Blade", "link": blade2Ref.Link}},
			want:       fixtures.Blade2SettingsMoid,
		},
		{
			name:       "multiple attributes",
			attributes: map[string]interface{}{"Server": blade2Ref, "AdminPowerState": "Policy"},
			want:       fixtures.Blade2SettingsMoid,
		},
		{
			name:       "attribute value differs",
			attributes: map[string]interface{}{"Server": blade2Ref, "AdminPowerState": "PowerOn"},
			wantErr:    ErrObjectNotFound,
		},
		{
			name:       "attribute missing on objects",
			attributes: map[string]interface{}{"Server": blade1Ref(), "Profile": "p1"},
			wantErr:    ErrObjectNotFound,
		},
		{
			name:       "attributes not encodable",
			attributes: map[string]interface{}{"Server": make(chan int)},
			wantErr:    ErrLookupAttributes,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := fixtures.NewFakeIntersight()

			opts := append([]LookupOption{WithObjectType("Server Settings (Power State Only)")}, tt.opts...)

			got, err := NewResolver(fake, testLogger()).MoidByAttributes(context.Background(), fixtures.ServerSettingsPath, tt.attributes, opts...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.Nil(t, err)
			assert.Equal(t, tt.want, got)

			// the organization is resolved once per lookup
			assert.Equal(t, 1, fake.CallCount(http.MethodGet, fixtures.OrganizationsPath))
		})
	}
}

func TestMoidByNameUnscopedCallSequence(t *testing.T) {
	ctrl := gomock.NewController(t)
	caller := fixtures.NewMockCaller(ctrl)

	accounts := &intersight.Response{
		StatusCode: http.StatusOK,
		Data:       map[string]interface{}{"Results": []interface{}{map[string]interface{}{"Name": "acme-lab"}}},
	}

	policies := &intersight.Response{
		StatusCode: http.StatusOK,
		Data: map[string]interface{}{"Results": []interface{}{
			map[string]interface{}{"Moid": "m1", "Name": "other"},
			map[string]interface{}{"Moid": "m2", "Name": "wanted"},
			map[string]interface{}{"Moid": "m3", "Name": "wanted"},
		}},
	}

	gomock.InOrder(
		caller.EXPECT().Call(gomock.Any(), http.MethodGet, AccountsPath, nil).Return(accounts, nil),
		caller.EXPECT().Call(gomock.Any(), http.MethodGet, "/policies", nil).Return(policies, nil),
	)

	got, err := NewResolver(caller, testLogger()).MoidByName(context.Background(), "/policies", "wanted")
	require.Nil(t, err)
	assert.Equal(t, "m2", got)
}
