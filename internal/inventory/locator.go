package inventory

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/exp/slices"

	"github.com/metal-toolbox/powerctl/internal/intersight"
	"github.com/metal-toolbox/powerctl/internal/metrics"
	"github.com/metal-toolbox/powerctl/internal/model"
)

var (
	ErrIdentifierMissing = errors.New("no server identifier provided")
	ErrFormFactor        = errors.New("invalid server form factor")
	ErrConnectionType    = errors.New("invalid server connection type")
	ErrServerNotFound    = errors.New("server not found")

	// ErrAmbiguousServer is returned in strict match mode when more than one server matches the identifier.
	ErrAmbiguousServer = errors.New("server identifier matches multiple servers")
)

// formFactorCollection is the compute collection holding servers of a form factor.
type formFactorCollection struct {
	segment    string
	objectType string
}

var (
	formFactorCollections = map[model.FormFactor]formFactorCollection{
		model.FormFactorBlade: {segment: "Blades", objectType: "Blade Server"},
		model.FormFactorRack:  {segment: "RackUnits", objectType: "Rack Server"},
	}

	managementModes = map[model.ConnectionType]string{
		model.ConnectionFIAttached: "Intersight",
		model.ConnectionStandalone: "IntersightStandalone",
	}
)

// Locator resolves server targets to Intersight compute object references.
type Locator struct {
	resolver    *Resolver
	baseURL     string
	strictMatch bool
}

// NewLocator returns a Locator, baseURL is used to build the link on the returned references.
//
// When strictMatch is set an identifier matching more than one server is an error,
// otherwise the first matching server in listing order is returned.
func NewLocator(resolver *Resolver, baseURL string, strictMatch bool) *Locator {
	return &Locator{
		resolver:    resolver,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		strictMatch: strictMatch,
	}
}

// Locate returns the reference and record of the server matching the target.
//
// The target identifier may list several tokens, a server matches when its Serial, Name, Model or UserLabel
// equals any of them.
func (l *Locator) Locate(ctx context.Context, target model.ServerTarget) (*model.ObjectReference, *model.ServerRecord, error) {
	ctx, span := otel.Tracer(pkgName).Start(
		ctx,
		"Locator.Locate",
		trace.WithAttributes(
			attribute.String("identifier", target.Identifier),
			attribute.String("formFactor", string(target.FormFactor)),
			attribute.String("connectionType", string(target.ConnectionType)),
		),
	)
	defer span.End()

	account, err := l.resolver.AccountName(ctx)
	if err != nil {
		return nil, nil, err
	}

	if strings.TrimSpace(target.Identifier) == "" {
		return nil, nil, ErrIdentifierMissing
	}

	identifiers := ParseIdentifiers(target.Identifier)

	collection, exists := formFactorCollections[target.FormFactor]
	if !exists {
		return nil, nil, errors.Wrap(
			ErrFormFactor,
			fmt.Sprintf("identifier '%s': got '%s', accepted values are %s", target.Identifier, target.FormFactor, quoted(model.FormFactors())),
		)
	}

	mode, exists := managementModes[target.ConnectionType]
	if !exists {
		return nil, nil, errors.Wrap(
			ErrConnectionType,
			fmt.Sprintf("identifier '%s': got '%s', accepted values are %s", target.Identifier, target.ConnectionType, quoted(model.ConnectionTypes())),
		)
	}

	path := fmt.Sprintf(
		"/compute/%s?$top=1000&$filter=ManagementMode%%20eq%%20%%27%s%%27",
		collection.segment,
		mode,
	)

	le := l.resolver.logger.WithFields(logrus.Fields{
		"identifier": target.Identifier,
		"objectType": collection.objectType,
		"account":    account,
	})

	le.Debug("retrieving servers")

	resp, err := l.resolver.caller.Call(ctx, http.MethodGet, path, nil)
	if err != nil {
		metrics.LookupErrorCounter.WithLabelValues(collection.objectType).Inc()

		return nil, nil, errors.Wrap(
			ErrCollectionFetch,
			fmt.Sprintf("%s at %s in account %s: %s", collection.objectType, path, account, err.Error()),
		)
	}

	results := resp.Results()
	if len(results) == 0 {
		metrics.LookupErrorCounter.WithLabelValues(collection.objectType).Inc()

		return nil, nil, errors.Wrap(
			ErrServerNotFound,
			fmt.Sprintf(
				"identifier '%s': no %ss could be found in account %s, compatible servers need to be %s",
				target.Identifier,
				collection.objectType,
				account,
				target.ConnectionType,
			),
		)
	}

	matches, err := matchServers(results, identifiers, l.strictMatch)
	if err != nil {
		return nil, nil, err
	}

	if len(matches) == 0 {
		metrics.LookupErrorCounter.WithLabelValues(collection.objectType).Inc()

		return nil, nil, errors.Wrap(
			ErrServerNotFound,
			fmt.Sprintf("a %s with identifier '%s' was not found in account %s", collection.objectType, target.Identifier, account),
		)
	}

	if len(matches) > 1 {
		metrics.LookupErrorCounter.WithLabelValues(collection.objectType).Inc()

		names := make([]string, 0, len(matches))
		for _, m := range matches {
			names = append(names, fmt.Sprintf("%s (%s)", m.Name, m.Moid))
		}

		return nil, nil, errors.Wrap(
			ErrAmbiguousServer,
			fmt.Sprintf("identifier '%s' matches %ss: %s", target.Identifier, collection.objectType, strings.Join(names, ", ")),
		)
	}

	server := matches[0]

	le.WithFields(logrus.Fields{"name": server.Name, "moid": server.Moid}).Info("matching server found")

	ref := &model.ObjectReference{
		ClassID:    model.MoRefClassID,
		Moid:       server.Moid,
		ObjectType: server.ObjectType,
		Link:       fmt.Sprintf("%s/compute/%s/%s", l.baseURL, collection.segment, server.Moid),
	}

	return ref, server, nil
}

// matchServers returns the records matching any of the identifiers.
//
// Unless all is set, scanning stops at the first match.
func matchServers(results []intersight.Record, identifiers []string, all bool) ([]*model.ServerRecord, error) {
	matches := []*model.ServerRecord{}

	for _, result := range results {
		server, err := decodeServerRecord(result)
		if err != nil {
			return nil, err
		}

		if !slices.ContainsFunc(server.Identifiers(), func(s string) bool {
			return slices.Contains(identifiers, s)
		}) {
			continue
		}

		matches = append(matches, server)

		if !all {
			break
		}
	}

	return matches, nil
}

func decodeServerRecord(record intersight.Record) (*model.ServerRecord, error) {
	server := &model.ServerRecord{}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           server,
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(map[string]interface{}(record)); err != nil {
		return nil, errors.Wrap(ErrCollectionFetch, "server record decode: "+err.Error())
	}

	return server, nil
}

func quoted[T ~string](values []T) string {
	s := make([]string, 0, len(values))
	for _, v := range values {
		s = append(s, "'"+string(v)+"'")
	}

	return strings.Join(s, ", ")
}
