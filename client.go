package starnotary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/layer-3/starnotary/core"
)

// HTTPClient talks to a starnotary server over HTTP
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

var _ Client = (*HTTPClient)(nil)

func (c *HTTPClient) RequestValidation(ctx context.Context, address string) (Challenge, error) {
	var out Challenge
	err := c.do(ctx, http.MethodPost, "/requestValidation", map[string]string{"address": address}, &out)
	return out, err
}

func (c *HTTPClient) ValidateSignature(ctx context.Context, address, signature string) (Validation, error) {
	var out Validation
	err := c.do(ctx, http.MethodPost, "/message-signature/validate", map[string]string{
		"address":   address,
		"signature": signature,
	}, &out)
	return out, err
}

func (c *HTTPClient) RegisterStar(ctx context.Context, address string, star core.Star) (Block, error) {
	var out Block
	err := c.do(ctx, http.MethodPost, "/block", core.Submission{Address: address, Star: &star}, &out)
	return out, err
}

func (c *HTTPClient) GetBlock(ctx context.Context, height int64) (Block, error) {
	var out Block
	err := c.do(ctx, http.MethodGet, "/block/"+strconv.FormatInt(height, 10), nil, &out)
	return out, err
}

// Register runs the whole handshake. sign receives the challenge message and
// returns the signature, typically by asking a wallet.
func Register(ctx context.Context, c Client, address string, star core.Star, sign func(message string) (string, error)) (Block, error) {
	challenge, err := c.RequestValidation(ctx, address)
	if err != nil {
		return Block{}, fmt.Errorf("request validation: %w", err)
	}
	sig, err := sign(challenge.Message)
	if err != nil {
		return Block{}, fmt.Errorf("sign challenge: %w", err)
	}
	if _, err := c.ValidateSignature(ctx, address, sig); err != nil {
		return Block{}, fmt.Errorf("validate signature: %w", err)
	}
	block, err := c.RegisterStar(ctx, address, star)
	if err != nil {
		return Block{}, fmt.Errorf("register star: %w", err)
	}
	return block, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(data, apiErr); err != nil {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
