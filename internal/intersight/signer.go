package intersight

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// AlgorithmRSASHA256 is used with v2 (RSA) API keys.
	AlgorithmRSASHA256 = "rsa-sha256"
	// AlgorithmHS2019 is used with v3 (elliptic curve) API keys.
	AlgorithmHS2019 = "hs2019"

	signedHeaders = "(request-target) host date digest"
)

var (
	ErrAPIKey = errors.New("Intersight API key error")
)

// Signer signs requests with an Intersight API key following the HTTP message signatures scheme
// the Intersight API expects.
type Signer struct {
	keyID     string
	key       crypto.Signer
	algorithm string
	now       func() time.Time
}

// NewSignerFromFile returns a Signer for the API key ID and the secret key PEM file path.
func NewSignerFromFile(keyID, keyFile string) (*Signer, error) {
	if keyFile == "" {
		return nil, errors.Wrap(ErrAPIKey, "no secret key file given")
	}

	b, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, errors.Wrap(ErrAPIKey, err.Error())
	}

	return NewSigner(keyID, b)
}

// NewSigner returns a Signer for the API key ID and the PEM encoded secret key.
//
// RSA keys (v2) sign with rsa-sha256, EC keys (v3) sign with hs2019.
func NewSigner(keyID string, keyPEM []byte) (*Signer, error) {
	if keyID == "" {
		return nil, errors.Wrap(ErrAPIKey, "no API key ID given")
	}

	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, errors.Wrap(ErrAPIKey, "secret key is not PEM encoded")
	}

	var parsed interface{}

	var err error

	switch block.Type {
	case "RSA PRIVATE KEY":
		parsed, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		parsed, err = x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		parsed, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	default:
		return nil, errors.Wrap(ErrAPIKey, "unsupported secret key type: "+block.Type)
	}

	if err != nil {
		return nil, errors.Wrap(ErrAPIKey, err.Error())
	}

	s := &Signer{keyID: keyID, now: time.Now}

	switch k := parsed.(type) {
	case *rsa.PrivateKey:
		s.key = k
		s.algorithm = AlgorithmRSASHA256
	case *ecdsa.PrivateKey:
		s.key = k
		s.algorithm = AlgorithmHS2019
	default:
		return nil, errors.Wrap(ErrAPIKey, fmt.Sprintf("unsupported secret key: %T", parsed))
	}

	return s, nil
}

// Algorithm returns the signature algorithm name sent in the Authorization header.
func (s *Signer) Algorithm() string {
	return s.algorithm
}

// Sign sets the Date, Digest and Authorization headers on the request.
//
// body must be the exact payload sent with the request, nil for requests without a body.
func (s *Signer) Sign(req *http.Request, body []byte) error {
	date := s.now().UTC().Format(http.TimeFormat)

	sum := sha256.Sum256(body)
	digest := "SHA-256=" + base64.StdEncoding.EncodeToString(sum[:])

	host := req.Host
	if host == "" {
		host = req.URL.Host
	}

	req.Header.Set("Date", date)
	req.Header.Set("Digest", digest)

	signingString := SigningString(req.Method, req.URL.RequestURI(), host, date, digest)

	hashed := sha256.Sum256([]byte(signingString))

	var signature []byte

	var err error

	switch k := s.key.(type) {
	case *rsa.PrivateKey:
		signature, err = rsa.SignPKCS1v15(rand.Reader, k, crypto.SHA256, hashed[:])
	case *ecdsa.PrivateKey:
		signature, err = ecdsa.SignASN1(rand.Reader, k, hashed[:])
	default:
		err = errors.New("signer has no key")
	}

	if err != nil {
		return errors.Wrap(ErrAPIKey, "request signing failed: "+err.Error())
	}

	req.Header.Set(
		"Authorization",
		fmt.Sprintf(
			`Signature keyId="%s",algorithm="%s",headers="%s",signature="%s"`,
			s.keyID,
			s.algorithm,
			signedHeaders,
			base64.StdEncoding.EncodeToString(signature),
		),
	)

	return nil
}

// SigningString returns the string covered by the request signature.
func SigningString(method, requestURI, host, date, digest string) string {
	return strings.Join(
		[]string{
			"(request-target): " + strings.ToLower(method) + " " + requestURI,
			"host: " + host,
			"date: " + date,
			"digest: " + digest,
		},
		"\n",
	)
}

// signingTransport signs each request before handing it to the base transport.
type signingTransport struct {
	signer *Signer
	base   http.RoundTripper
}

func (t *signingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	body, err := requestBody(req)
	if err != nil {
		return nil, err
	}

	signed := req.Clone(req.Context())
	signed.Body = http.NoBody
	signed.ContentLength = 0

	if len(body) > 0 {
		signed.Body = io.NopCloser(bytes.NewReader(body))
		signed.ContentLength = int64(len(body))
	}

	if err := t.signer.Sign(signed, body); err != nil {
		return nil, err
	}

	return t.base.RoundTrip(signed)
}

func requestBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}

	defer req.Body.Close()

	if req.GetBody != nil {
		rc, err := req.GetBody()
		if err != nil {
			return nil, err
		}

		defer rc.Close()

		return io.ReadAll(rc)
	}

	return io.ReadAll(req.Body)
}
