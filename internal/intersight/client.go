package intersight

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/metal-toolbox/powerctl/internal/metrics"
)

const (
	// DefaultBaseURL is the Intersight SaaS API base URL.
	DefaultBaseURL = "https://www.intersight.com/api/v1"

	// connectionTimeout is the maximum amount of time spent on each http connection to the Intersight API.
	connectionTimeout = 30 * time.Second

	AuthAPIKey = "apikey"
	AuthOAuth2 = "oauth2"

	pkgName = "internal/intersight"
)

var (
	ErrClientConfig = errors.New("Intersight client configuration error")

	// ErrRequest is returned when the request could not be sent or the response not read.
	ErrRequest = errors.New("Intersight API request error")

	// ErrUnexpectedStatus is returned when the Intersight API responds with a non 2xx status.
	ErrUnexpectedStatus = errors.New("Intersight API returned an unexpected status")

	// ErrResponseDecode is returned when the response body is not a JSON object.
	ErrResponseDecode = errors.New("Intersight API response decode error")
)

// Caller is the contract the object resolution logic depends on to reach the Intersight API.
type Caller interface {
	// Call sends the request to the API path relative to the base URL, body is JSON encoded when non nil.
	//
	// A non 2xx response is returned along with an error wrapping ErrUnexpectedStatus.
	Call(ctx context.Context, method, path string, body interface{}) (*Response, error)
}

// Options are the Intersight API client parameters.
//
// nolint:govet // fieldalignment struct is easier to read in the current format
type Options struct {
	BaseURL   string
	VerifyTLS bool
	Timeout   time.Duration

	// Auth is one of apikey, oauth2.
	Auth string

	// KeyID and KeyFile are the API key ID and secret key file used with apikey auth.
	KeyID   string
	KeyFile string

	// OAuth2 client credentials used with oauth2 auth.
	OAuthClientID     string
	OAuthClientSecret string
	OAuthTokenURL     string
	OIDCIssuer        string
}

// Client is an Intersight API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// New returns an Intersight API client with the authentication scheme set in the options.
func New(ctx context.Context, opts *Options, logger *logrus.Logger) (*Client, error) {
	if opts == nil {
		return nil, errors.Wrap(ErrClientConfig, "no client options given")
	}

	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, errors.Wrap(ErrClientConfig, "base URL: "+err.Error())
	}

	base := baseTransport(opts.VerifyTLS)

	var transport http.RoundTripper

	switch opts.Auth {
	case AuthAPIKey, "":
		signer, err := NewSignerFromFile(opts.KeyID, opts.KeyFile)
		if err != nil {
			return nil, err
		}

		transport = &signingTransport{signer: signer, base: base}
	case AuthOAuth2:
		t, err := oauthTransport(ctx, baseURL, opts, base)
		if err != nil {
			return nil, err
		}

		transport = t
	default:
		return nil, errors.Wrap(ErrClientConfig, "unknown auth scheme: "+opts.Auth)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = connectionTimeout
	}

	return NewWithTransport(baseURL, otelhttp.NewTransport(transport), timeout, logger), nil
}

// NewWithTransport returns a client that sends requests through the given transport as is,
// authentication is left to the transport.
func NewWithTransport(baseURL string, transport http.RoundTripper, timeout time.Duration, logger *logrus.Logger) *Client {
	// init retryable http client
	retryableClient := retryablehttp.NewClient()

	// requests are never retried, the client is used for its hooks and body handling
	retryableClient.RetryMax = 0
	retryableClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryableClient.HTTPClient = &http.Client{Transport: transport}

	// disable default debug logging on the retryable client
	if logger.Level < logrus.DebugLevel {
		retryableClient.Logger = nil
	} else {
		retryableClient.Logger = logger
		retryableClient.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, _ int) {
			logger.WithFields(logrus.Fields{"method": req.Method, "url": req.URL.String()}).Debug("Intersight API request")
		}
	}

	httpClient := retryableClient.StandardClient()
	httpClient.Timeout = timeout

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// BaseURL returns the API base URL the client sends requests to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Call implements the Caller interface.
func (c *Client) Call(ctx context.Context, method, path string, body interface{}) (*Response, error) {
	ctx, span := otel.Tracer(pkgName).Start(
		ctx,
		"Client.Call",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("method", method), attribute.String("path", path)),
	)
	defer span.End()

	startTS := time.Now()
	status := "error"

	defer func() {
		metrics.APIRequestCounter.With(prometheus.Labels{"method": method, "status": status}).Inc()
		metrics.APIRequestRunTimeSummary.With(prometheus.Labels{"method": method}).Observe(time.Since(startTS).Seconds())
	}()

	var reader io.Reader = http.NoBody

	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(ErrRequest, "request body encode: "+err.Error())
		}

		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return nil, errors.Wrap(ErrRequest, err.Error())
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(ErrRequest, err.Error())
	}

	defer resp.Body.Close()

	status = strconv.Itoa(resp.StatusCode)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(ErrRequest, "response read: "+err.Error())
	}

	response := &Response{StatusCode: resp.StatusCode}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return response, errors.Wrap(
			ErrUnexpectedStatus,
			fmt.Sprintf("%s %s: %s %s", method, path, resp.Status, strings.TrimSpace(string(respBody))),
		)
	}

	if len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, &response.Data); err != nil {
			return response, errors.Wrap(ErrResponseDecode, method+" "+path+": "+err.Error())
		}
	}

	return response, nil
}

func (c *Client) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return c.baseURL + path
}

func baseTransport(verifyTLS bool) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()

	if !verifyTLS {
		// nolint:gosec // certificate verification is disabled on request, for appliances with self signed certificates.
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return t
}
