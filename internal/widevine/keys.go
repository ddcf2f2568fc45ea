package widevine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io/ioutil"
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Doer is the transport used to reach the key server. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client requests content keys from a single key server under one signer.
// It holds no per-call state and may be shared between goroutines when the
// transport allows it.
type Client struct {
	url       string
	signer    string
	signerKey string
	signerIV  string
	http      Doer
	logger    *zap.Logger
}

type Option func(*Client)

// WithSigningKey makes the client sign requests. Both key and iv are hex
// strings; signing is skipped unless both are non-empty.
func WithSigningKey(key, iv string) Option {
	return func(c *Client) {
		c.signerKey = key
		c.signerIV = iv
	}
}

func WithHTTPClient(doer Doer) Option {
	return func(c *Client) {
		c.http = doer
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func New(url, signer string, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, errors.New("no key server url provided")
	}

	c := &Client{
		url:    url,
		signer: signer,
		http:   http.DefaultClient,
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = http.DefaultClient
	}

	if c.logger == nil {
		c.logger = zap.NewNop()
	}

	return c, nil
}

// Signs reports whether requests carry a signature.
func (c *Client) Signs() bool {
	return c.signerKey != "" && c.signerIV != ""
}

// Envelope builds the JSON body posted to the key server.
func (c *Client) Envelope(req *KeyRequest) (*SignedEnvelope, error) {
	return c.envelope(req, c.logger)
}

func (c *Client) envelope(req *KeyRequest, logs *zap.Logger) (*SignedEnvelope, error) {
	payload, err := req.Payload()

	if err != nil {
		return nil, err
	}

	envelope := &SignedEnvelope{
		Request: base64.StdEncoding.EncodeToString(payload),
		Signer:  c.signer,
	}

	if c.Signs() {
		signer, err := NewSigner(c.signerKey, c.signerIV, logs)

		if err != nil {
			return nil, err
		}

		envelope.Signature = signer.Sign(payload)
	}

	return envelope, nil
}

// GetKeys asks the key server for the keys of contentID. tracks is a comma
// separated list of track classes; unknown entries are ignored. The call is a
// single POST: a non-200 status yields *RequestError, a malformed body
// *DecodeError and a bad signing key *CryptoError. Traces go to the logger of
// ctx when one was set with ContextWithLogger.
func (c *Client) GetKeys(ctx context.Context, contentID, tracks, policy string) (*KeyResponse, error) {
	logs := LoggerFromContext(ctx, c.logger)

	request := NewKeyRequest(contentID, tracks, policy)
	logs.Debug("request",
		zap.String("content_id", request.ContentID),
		zap.String("policy", request.Policy),
		zap.Any("tracks", request.Tracks),
	)

	envelope, err := c.envelope(request, logs)

	if err != nil {
		return nil, err
	}

	jEnvelope, err := json.Marshal(envelope)

	if err != nil {
		return nil, errors.Wrap(err, "json format envelope")
	}

	logs.Debug("outgoing request", zap.ByteString("body", jEnvelope))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jEnvelope))

	if err != nil {
		return nil, errors.Wrap(err, "create POST request")
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)

	if err != nil {
		return nil, errors.Wrap(err, "post key request")
	}

	defer func() {
		_ = res.Body.Close()
	}()

	body, err := ioutil.ReadAll(res.Body)

	if err != nil {
		return nil, errors.Wrap(err, "read body response")
	}

	logs.Debug("response", zap.Int("status", res.StatusCode), zap.ByteString("body", body))

	if res.StatusCode != http.StatusOK {
		return nil, &RequestError{StatusCode: res.StatusCode, Status: res.Status, Body: body}
	}

	response, err := decodeResponse(body)

	if err != nil {
		return nil, err
	}

	logs.Debug("decode widevine response", zap.ByteString("response", response.Raw()))

	return response, nil
}

// GetKeys is a one-shot request with the default HTTP client. signerKey and
// signerIV may be empty, in which case the request is not signed.
func GetKeys(ctx context.Context, contentID, url, tracks, policy, signer, signerKey, signerIV string) (*KeyResponse, error) {
	client, err := New(url, signer, WithSigningKey(signerKey, signerIV))

	if err != nil {
		return nil, err
	}

	return client.GetKeys(ctx, contentID, tracks, policy)
}
