package intersight

import (
	"context"
	"net/http"
	"net/url"

	"github.com/coreos/go-oidc"
	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenURL returns the OAuth2 token endpoint.
//
// An explicitly configured token URL is used as is, when an OIDC issuer is configured the endpoint
// is discovered from it, otherwise the endpoint is the /iam/token path on the API host.
func TokenURL(ctx context.Context, baseURL string, opts *Options) (string, error) {
	if opts.OAuthTokenURL != "" {
		return opts.OAuthTokenURL, nil
	}

	if opts.OIDCIssuer != "" {
		// setup oidc provider
		provider, err := oidc.NewProvider(ctx, opts.OIDCIssuer)
		if err != nil {
			return "", errors.Wrap(ErrClientConfig, "oidc provider: "+err.Error())
		}

		return provider.Endpoint().TokenURL, nil
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", errors.Wrap(ErrClientConfig, "base URL: "+err.Error())
	}

	return u.Scheme + "://" + u.Host + "/iam/token", nil
}

// oauthTransport returns a transport that authenticates requests with a client credentials token.
func oauthTransport(ctx context.Context, baseURL string, opts *Options, base http.RoundTripper) (http.RoundTripper, error) {
	if opts.OAuthClientID == "" || opts.OAuthClientSecret == "" {
		return nil, errors.Wrap(ErrClientConfig, "oauth2 auth requires a client ID and client secret")
	}

	// token requests go through the same TLS settings and are traced
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: otelhttp.NewTransport(base)})

	tokenURL, err := TokenURL(ctx, baseURL, opts)
	if err != nil {
		return nil, err
	}

	// setup oauth configuration
	oauthConfig := clientcredentials.Config{
		ClientID:     opts.OAuthClientID,
		ClientSecret: opts.OAuthClientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	return &oauth2.Transport{
		Source: oauthConfig.TokenSource(ctx),
		Base:   base,
	}, nil
}
