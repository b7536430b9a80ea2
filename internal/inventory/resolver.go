package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/exp/maps"

	"github.com/metal-toolbox/powerctl/internal/intersight"
	"github.com/metal-toolbox/powerctl/internal/metrics"
	"github.com/metal-toolbox/powerctl/internal/model"
)

const (
	pkgName = "internal/inventory"

	// AccountsPath is the API identity listing, its first result names the account.
	AccountsPath = "/iam/Accounts"

	// OrganizationsPath lists the organizations objects may be scoped to.
	OrganizationsPath = "/organization/Organizations?$top=1000"

	defaultObjectType = "object"
)

var (
	// ErrAccountAccess is returned when the Intersight account could not be accessed,
	// this indicates an API key or connectivity issue and is not a lookup miss.
	ErrAccountAccess = errors.New("Intersight account unavailable")

	// ErrCollectionFetch is returned when an object collection could not be retrieved.
	ErrCollectionFetch = errors.New("error retrieving Intersight objects")

	// ErrObjectNotFound is returned when no eligible object matched the lookup.
	ErrObjectNotFound = errors.New("Intersight object not found")

	// ErrLookupAttributes is returned when the lookup attributes cannot be encoded for comparison.
	ErrLookupAttributes = errors.New("invalid lookup attributes")
)

// Resolver looks up Intersight managed objects by name or by attribute values.
type Resolver struct {
	caller intersight.Caller
	logger *logrus.Logger
}

// LookupOption sets lookup parameters on the Resolver methods.
type LookupOption func(*lookupOptions)

type lookupOptions struct {
	organization string
	objectType   string

	// unscoped skips organization scoping, set when resolving the organization itself.
	unscoped bool
}

// WithOrganization scopes the lookup to the named organization, the default is "default".
func WithOrganization(name string) LookupOption {
	return func(o *lookupOptions) {
		if name != "" {
			o.organization = name
		}
	}
}

// WithObjectType sets the object type label included in errors and logs.
func WithObjectType(label string) LookupOption {
	return func(o *lookupOptions) {
		if label != "" {
			o.objectType = label
		}
	}
}

// NewResolver returns a Resolver that reaches the Intersight API through the given Caller.
func NewResolver(caller intersight.Caller, logger *logrus.Logger) *Resolver {
	return &Resolver{caller: caller, logger: logger}
}

// AccountName returns the name of the Intersight account the API credentials belong to.
//
// Any failure is returned as ErrAccountAccess.
func (r *Resolver) AccountName(ctx context.Context) (string, error) {
	ctx, span := otel.Tracer(pkgName).Start(ctx, "Resolver.AccountName")
	defer span.End()

	resp, err := r.caller.Call(ctx, http.MethodGet, AccountsPath, nil)
	if err != nil {
		return "", errors.Wrap(ErrAccountAccess, err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		return "", errors.Wrap(ErrAccountAccess, fmt.Sprintf("unexpected status: %d", resp.StatusCode))
	}

	results := resp.Results()
	if len(results) == 0 {
		return "", errors.Wrap(ErrAccountAccess, "no account listed for the API credentials")
	}

	return results[0].String("Name"), nil
}

// MoidByName returns the Moid of the first object at path with the given Name.
//
// Objects carrying an Organization reference are only eligible when it refers to the lookup organization.
func (r *Resolver) MoidByName(ctx context.Context, path, name string, opts ...LookupOption) (string, error) {
	ctx, span := otel.Tracer(pkgName).Start(
		ctx,
		"Resolver.MoidByName",
		trace.WithAttributes(attribute.String("path", path), attribute.String("name", name)),
	)
	defer span.End()

	account, err := r.AccountName(ctx)
	if err != nil {
		return "", err
	}

	o := newLookupOptions(opts)

	return r.lookup(ctx, account, path, o, nameMatcher(name), fmt.Sprintf("named '%s'", name))
}

// MoidByAttributes returns the Moid of the first object at path holding every attribute with an equal value.
//
// Attribute values are compared in their JSON form, an object missing an attribute is not a match.
func (r *Resolver) MoidByAttributes(ctx context.Context, path string, attributes map[string]interface{}, opts ...LookupOption) (string, error) {
	ctx, span := otel.Tracer(pkgName).Start(
		ctx,
		"Resolver.MoidByAttributes",
		trace.WithAttributes(attribute.String("path", path), attribute.StringSlice("attributes", maps.Keys(attributes))),
	)
	defer span.End()

	want, err := normalizeAttributes(attributes)
	if err != nil {
		return "", err
	}

	account, err := r.AccountName(ctx)
	if err != nil {
		return "", err
	}

	o := newLookupOptions(opts)

	return r.lookup(ctx, account, path, o, attributeMatcher(want), "with attributes "+describeAttributes(want))
}

// lookup fetches the collection at path and returns the Moid of the first eligible object for which match returns true.
func (r *Resolver) lookup(ctx context.Context, account, path string, o *lookupOptions, match func(intersight.Record) bool, desc string) (string, error) {
	le := r.logger.WithFields(logrus.Fields{"objectType": o.objectType, "path": path, "account": account})

	resp, err := r.caller.Call(ctx, http.MethodGet, path, nil)
	if err != nil {
		metrics.LookupErrorCounter.WithLabelValues(o.objectType).Inc()

		return "", errors.Wrap(
			ErrCollectionFetch,
			fmt.Sprintf("%s at %s in account %s: %s", o.objectType, path, account, err.Error()),
		)
	}

	results := resp.Results()
	if len(results) == 0 {
		metrics.LookupErrorCounter.WithLabelValues(o.objectType).Inc()

		return "", errors.Wrap(
			ErrObjectNotFound,
			fmt.Sprintf("%s %s: no %s instance is available at %s in account %s", o.objectType, desc, o.objectType, path, account),
		)
	}

	// the organization is resolved on the first scoped object
	var orgMoid string

	var orgResolved bool

	for _, record := range results {
		if org := record.Map("Organization"); len(org) > 0 && !o.unscoped {
			if !orgResolved {
				orgMoid, err = r.lookup(
					ctx,
					account,
					OrganizationsPath,
					&lookupOptions{organization: o.organization, objectType: "Organization", unscoped: true},
					nameMatcher(o.organization),
					fmt.Sprintf("named '%s'", o.organization),
				)
				if err != nil {
					return "", err
				}

				orgResolved = true
			}

			if org.String("Moid") != orgMoid {
				continue
			}
		}

		if match(record) {
			moid := record.String("Moid")

			le.WithField("moid", moid).Debug(o.objectType + " " + desc + " found")

			return moid, nil
		}
	}

	metrics.LookupErrorCounter.WithLabelValues(o.objectType).Inc()

	return "", errors.Wrap(
		ErrObjectNotFound,
		fmt.Sprintf("%s %s in organization '%s' at %s in account %s", o.objectType, desc, o.organization, path, account),
	)
}

func newLookupOptions(opts []LookupOption) *lookupOptions {
	o := &lookupOptions{organization: model.DefaultOrganization, objectType: defaultObjectType}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

func nameMatcher(name string) func(intersight.Record) bool {
	return func(record intersight.Record) bool {
		return record.Has("Name") && record.String("Name") == name
	}
}

func attributeMatcher(want map[string]interface{}) func(intersight.Record) bool {
	return func(record intersight.Record) bool {
		for key, value := range want {
			got, exists := record[key]
			if !exists || !reflect.DeepEqual(got, value) {
				return false
			}
		}

		return true
	}
}

// normalizeAttributes round trips the attributes through JSON so they compare equal to decoded API records.
func normalizeAttributes(attributes map[string]interface{}) (map[string]interface{}, error) {
	b, err := json.Marshal(attributes)
	if err != nil {
		return nil, errors.Wrap(ErrLookupAttributes, err.Error())
	}

	normalized := map[string]interface{}{}
	if err := json.Unmarshal(b, &normalized); err != nil {
		return nil, errors.Wrap(ErrLookupAttributes, err.Error())
	}

	return normalized, nil
}

func describeAttributes(attributes map[string]interface{}) string {
	b, _ := json.Marshal(attributes)
	return string(b)
}
