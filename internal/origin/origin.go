package origin

import (
	"bytes"
	"context"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/zencoder/go-dash/mpd"
)

const defaultUserAgent = "widevine-keyproxy/1.0"

// Client fetches clear DASH manifests from the packaging origin.
type Client struct {
	base      *url.URL
	userAgent string
	http      *http.Client
}

func New(baseURL, userAgent string, httpClient *http.Client) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("no origin url provided")
	}

	base, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")

	if err != nil {
		return nil, errors.Wrap(err, "parse origin url")
	}

	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		base:      base,
		userAgent: userAgent,
		http:      httpClient,
	}, nil
}

// ManifestURL returns <base>/<contentID>.mpd.
func (c *Client) ManifestURL(contentID string) string {
	return c.base.ResolveReference(&url.URL{Path: contentID + ".mpd"}).String()
}

// GetManifest downloads and parses the manifest of contentID. The returned
// manifest has its BaseURL resolved against the manifest location, so segment
// references keep pointing at the origin once the manifest is served from
// elsewhere. Absolute BaseURLs are kept.
func (c *Client) GetManifest(ctx context.Context, contentID string) (*mpd.MPD, error) {
	if contentID == "" {
		return nil, errors.New("no content id provided")
	}

	manifestURL := c.ManifestURL(contentID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL, nil)

	if err != nil {
		return nil, errors.Wrap(err, "create GET manifest request")
	}

	req.Header.Set("User-Agent", c.userAgent)

	res, err := c.http.Do(req)

	if err != nil {
		return nil, errors.Wrap(err, "get manifest")
	}

	defer func() {
		_ = res.Body.Close()
	}()

	body, err := ioutil.ReadAll(res.Body)

	if err != nil {
		return nil, errors.Wrap(err, "read body response")
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, errors.Errorf("bad http code: %s: %s", res.Status, body)
	}

	manifest, err := mpd.Read(bytes.NewReader(body))

	if err != nil {
		return nil, errors.Wrap(err, "parse manifest")
	}

	location, err := url.Parse(manifestURL)

	if err != nil {
		return nil, errors.Wrap(err, "parse manifest url")
	}

	base, err := url.Parse(manifest.BaseURL)

	if err != nil {
		return nil, errors.Wrap(err, "parse manifest base url")
	}

	if manifest.BaseURL == "" {
		base = &url.URL{Path: "./"}
	}

	// relative or missing BaseURL would resolve against the proxy once served
	manifest.BaseURL = location.ResolveReference(base).String()

	return manifest, nil
}
