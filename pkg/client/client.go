// Package client talks to a proof list server and verifies what it returns
// against list hashes the caller already trusts.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/merkle"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single HTTP attempt
const DefaultTimeout = 10 * time.Second

// APIError is a non-2xx response of the server
type APIError struct {
	StatusCode int
	Message    string
	Kind       string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("server returned %d (%s): %s", e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client is an HTTP client of the proof list server
type Client struct {
	baseURL     string
	httpClient  *http.Client
	hasher      merkle.Hasher
	retryConfig RetryConfig
	logger      *zap.Logger
}

// Option customizes a Client
type Option func(c *Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRetryConfig replaces DefaultRetryConfig
func WithRetryConfig(rc RetryConfig) Option {
	return func(c *Client) {
		c.retryConfig = rc
	}
}

// NewClient creates a client of the server at baseURL. hasher must be the
// one the server was configured with, it is used for local verification.
func NewClient(baseURL string, hasher merkle.Hasher, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		hasher:      hasher,
		retryConfig: DefaultRetryConfig,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health checks that the server and its store are up
func (c *Client) Health(ctx context.Context) (*types.HealthResponse, error) {
	var resp types.HealthResponse
	if err := c.getJSON(ctx, "/health", &resp); err != nil {
		return nil, errors.Wrap(err, "health check failed")
	}
	return &resp, nil
}

// ListNames returns the names of all lists stored on the server
func (c *Client) ListNames(ctx context.Context) ([]string, error) {
	var resp types.ListNamesResponse
	if err := c.getJSON(ctx, "/lists", &resp); err != nil {
		return nil, errors.Wrap(err, "failed to list names")
	}
	return resp.Lists, nil
}

// Info returns the state of a list as reported by the server
func (c *Client) Info(ctx context.Context, name string) (*types.ListInfoResponse, error) {
	var resp types.ListInfoResponse
	if err := c.getJSON(ctx, listPath(name), &resp); err != nil {
		return nil, errors.Wrapf(err, "failed to get info of %s", name)
	}
	return &resp, nil
}

// Append adds values to a list. Appends are not idempotent and are never
// retried.
func (c *Client) Append(ctx context.Context, name string, values [][]byte) (*types.AppendResponse, error) {
	req := types.AppendRequest{Values: make([]hexutil.Bytes, len(values))}
	for i, v := range values {
		req.Values[i] = v
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal append request")
	}

	var resp types.AppendResponse
	err = NoRetry.retry(ctx, func() (bool, error) {
		return c.doJSON(ctx, http.MethodPost, listPath(name)+"/entries", body, &resp)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to append to %s", name)
	}

	c.logger.Sugar().Debugw("Appended entries", "list", name, "first_index", resp.FirstIndex, "length", resp.Length)
	return &resp, nil
}

// GetEntry returns one element of a list, unverified
func (c *Client) GetEntry(ctx context.Context, name string, index uint64) ([]byte, error) {
	var resp types.EntryResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/entries/%d", listPath(name), index), &resp); err != nil {
		return nil, errors.Wrapf(err, "failed to get entry %d of %s", index, name)
	}
	return resp.Value, nil
}

// Delete removes a list from the server
func (c *Client) Delete(ctx context.Context, name string) error {
	err := c.retryConfig.retry(ctx, func() (bool, error) {
		return c.doJSON(ctx, http.MethodDelete, listPath(name), nil, nil)
	})
	return errors.Wrapf(err, "failed to delete %s", name)
}

// GetProof fetches a proof for indices in the protobuf wire format
func (c *Client) GetProof(ctx context.Context, name string, indices ...uint64) (*merkle.ListProof, error) {
	query := url.Values{}
	for _, index := range indices {
		query.Add("index", strconv.FormatUint(index, 10))
	}
	proof, err := c.getProof(ctx, name, query)
	return proof, errors.Wrapf(err, "failed to get proof of %s", name)
}

// GetRangeProof fetches a proof for the elements in [from, to)
func (c *Client) GetRangeProof(ctx context.Context, name string, from, to uint64) (*merkle.ListProof, error) {
	query := url.Values{}
	query.Set("from", strconv.FormatUint(from, 10))
	query.Set("to", strconv.FormatUint(to, 10))
	proof, err := c.getProof(ctx, name, query)
	return proof, errors.Wrapf(err, "failed to get range proof of %s", name)
}

// FetchVerified fetches a proof for indices and checks it against
// trustedListHash locally. Only values covered by a valid proof are returned.
func (c *Client) FetchVerified(ctx context.Context, name string, trustedListHash merkle.Hash, indices ...uint64) (map[uint64][]byte, error) {
	proof, err := c.GetProof(ctx, name, indices...)
	if err != nil {
		return nil, err
	}

	entries, err := merkle.Verify(c.hasher, proof, trustedListHash)
	if err != nil {
		c.logger.Sugar().Warnw("Rejected proof from server",
			"list", name,
			"kind", merkle.ErrorKind(err),
			"error", err)
		return nil, errors.Wrapf(err, "proof of %s failed verification", name)
	}
	if err := checkProvenIndices(indices, entries); err != nil {
		c.logger.Sugar().Warnw("Rejected proof from server",
			"list", name,
			"kind", merkle.ErrorKind(err),
			"error", err)
		return nil, errors.Wrapf(err, "proof of %s does not cover the requested indices", name)
	}
	return entries, nil
}

// VerifyRemote asks the server to check proof. It is meant for debugging,
// FetchVerified doesn't need the server's word.
func (c *Client) VerifyRemote(ctx context.Context, proof *merkle.ListProof, expected merkle.Hash) (*types.VerifyResponse, error) {
	body, err := json.Marshal(types.VerifyRequest{Proof: proof, ExpectedHash: expected})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal verify request")
	}

	var resp types.VerifyResponse
	err = c.retryConfig.retry(ctx, func() (bool, error) {
		retryable, err := c.doJSON(ctx, http.MethodPost, "/verify", body, &resp)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnprocessableEntity {
			// the body was decoded in resp
			return false, nil
		}
		return retryable, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "remote verification failed")
	}
	return &resp, nil
}

// checkProvenIndices requires entries to hold exactly the requested indices.
// A valid proof for other elements is still a wrong answer.
func checkProvenIndices(requested []uint64, entries map[uint64][]byte) error {
	want := make(map[uint64]struct{}, len(requested))
	for _, index := range requested {
		want[index] = struct{}{}
	}

	sorted := make([]uint64, 0, len(want))
	for index := range want {
		sorted = append(sorted, index)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for _, index := range sorted {
		if _, ok := entries[index]; !ok {
			return fmt.Errorf("%w: no entry for requested index %d", merkle.ErrMissingNode, index)
		}
	}
	for index := range entries {
		if _, ok := want[index]; !ok {
			return fmt.Errorf("%w: entry %d was not requested", merkle.ErrUnexpectedNode, index)
		}
	}
	return nil
}

func (c *Client) getProof(ctx context.Context, name string, query url.Values) (*merkle.ListProof, error) {
	target := listPath(name) + "/proof"
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}

	var proof *merkle.ListProof
	err := c.retryConfig.retry(ctx, func() (bool, error) {
		data, retryable, err := c.do(ctx, http.MethodGet, target, nil, merkle.ContentTypeProtobuf)
		if err != nil {
			return retryable, err
		}
		decoded := &merkle.ListProof{}
		if err := decoded.UnmarshalBinary(data); err != nil {
			return false, errors.Wrap(err, "failed to decode proof")
		}
		proof = decoded
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return proof, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	return c.retryConfig.retry(ctx, func() (bool, error) {
		return c.doJSON(ctx, http.MethodGet, path, nil, out)
	})
}

// doJSON sends body as JSON and decodes the response into out. The body of
// an error response is decoded into out as well when the server sent JSON.
func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, out interface{}) (bool, error) {
	data, retryable, err := c.do(ctx, method, path, body, "application/json")
	var apiErr *APIError
	if err != nil && !errors.As(err, &apiErr) {
		return retryable, err
	}
	if out != nil && len(data) > 0 {
		if decodeErr := json.Unmarshal(data, out); decodeErr != nil && err == nil {
			return false, errors.Wrap(decodeErr, "failed to decode response")
		}
	}
	return retryable, err
}

// do performs one HTTP attempt. Transport failures, 429 and 5xx responses
// are retryable.
func (c *Client) do(ctx context.Context, method, path string, body []byte, accept string) ([]byte, bool, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", accept)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Sugar().Debugw("Request failed", "method", method, "path", path, "error", err)
		return nil, ctx.Err() == nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, false, nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	var failure types.ErrorResponse
	if json.Unmarshal(data, &failure) == nil && failure.Error != "" {
		apiErr.Message = failure.Error
		apiErr.Kind = failure.Kind
	}
	retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
	return data, retryable, apiErr
}

func listPath(name string) string {
	return "/lists/" + url.PathEscape(name)
}
