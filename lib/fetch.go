package lib

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ethereum/go-ethereum/rpc"
)

// maxResponseBytes bounds HTTPS datasource bodies.
const maxResponseBytes = 2 << 20

// Pair is one header or query parameter.
type Pair struct {
	Name  string
	Value string
}

// FetchJSON GETs rawURL with the given headers and queries and decodes the
// JSON body into dst. A *string dst receives the raw body.
func FetchJSON(ctx context.Context, client *http.Client, rawURL string, headers, queries []Pair, dst interface{}) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url %s: %w", rawURL, err)
	}
	if len(queries) > 0 {
		q := u.Query()
		for _, p := range queries {
			q.Add(p.Name, p.Value)
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	for _, h := range headers {
		req.Header.Add(h.Name, h.Value)
	}
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error fetching %s: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("error reading response of %s: %w", u.Redacted(), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s returned %s", u.Redacted(), resp.Status)
	}
	if s, ok := dst.(*string); ok {
		*s = string(body)
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("error decoding response of %s: %w", u.Redacted(), err)
	}
	return nil
}

// CallJSONRPC calls method on the endpoint at rawURL and decodes the result
// into dst.
func CallJSONRPC(ctx context.Context, rawURL string, dst interface{}, method string, params ...interface{}) error {
	client, err := rpc.DialContext(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("error connecting to %s: %w", rawURL, err)
	}
	defer client.Close()

	if err := client.CallContext(ctx, dst, method, params...); err != nil {
		return fmt.Errorf("error calling %s: %w", method, err)
	}
	return nil
}
