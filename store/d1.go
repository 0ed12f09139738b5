// Copyright 2025 The Hotwheels API Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/nulfrost/hotwheels-api/utils/httputils"
)

// DefaultD1BaseURL is the Cloudflare API root.
const DefaultD1BaseURL = "https://api.cloudflare.com/client/v4"

// ErrMissingCredentials is returned when a D1 setting is empty.
var ErrMissingCredentials = errors.New("missing D1 credentials")

// d1Conn talks to a Cloudflare D1 database through its HTTP query API.
type d1Conn struct {
	client   *resty.Client
	endpoint string
}

type d1Request struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

type d1Message struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type d1Result struct {
	Results []map[string]any `json:"results"`
	Success bool             `json:"success"`
	Meta    struct {
		Changes   int64 `json:"changes"`
		LastRowID int64 `json:"last_row_id"`
	} `json:"meta"`
}

type d1Response struct {
	Success bool        `json:"success"`
	Errors  []d1Message `json:"errors"`
	Result  []d1Result  `json:"result"`
}

// NewD1 returns a Conn for the configured D1 database. Requests answered
// with 400, 408 or 500 are retried like transport errors.
func NewD1(cfg D1Config, log logrus.FieldLogger) (Conn, error) {
	var missing []string

	for _, setting := range [][2]string{
		{"account id", cfg.AccountID},
		{"database id", cfg.DatabaseID},
		{"api token", cfg.APIToken},
	} {
		if setting[1] == "" {
			missing = append(missing, setting[0])
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}

	base := DefaultD1BaseURL
	if cfg.BaseURL != "" {
		base = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	delay := httputils.DefaultDelay
	if cfg.RetryDelay > 0 {
		delay = cfg.RetryDelay
	}

	client := httputils.NewClient(httputils.ClientOptions{
		Policy: httputils.RetryPolicy{
			Delay: delay,
			Retryable: httputils.RetryOnStatus(
				http.StatusBadRequest,
				http.StatusRequestTimeout,
				http.StatusInternalServerError,
			),
		},
		Logger: log,
	}).
		SetAuthToken(cfg.APIToken).
		SetHeader("Content-Type", "application/json")

	return &d1Conn{
		client:   client,
		endpoint: fmt.Sprintf("%s/accounts/%s/d1/database/%s/query", base, cfg.AccountID, cfg.DatabaseID),
	}, nil
}

func (c *d1Conn) Dialect() Dialect {
	return SQLite
}

func messages(msgs []d1Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, fmt.Sprintf("%d: %s", m.Code, m.Message))
	}

	return strings.Join(parts, "; ")
}

func (c *d1Conn) do(ctx context.Context, query string, args []any) (*d1Response, error) {
	if args == nil {
		args = []any{}
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(d1Request{SQL: query, Params: args}).
		Post(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("querying d1: %w", err)
	}

	var out d1Response

	dec := json.NewDecoder(bytes.NewReader(resp.Body()))
	dec.UseNumber()

	decodeErr := dec.Decode(&out)

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		statusErr := &httputils.StatusError{StatusCode: resp.StatusCode()}
		if decodeErr == nil && len(out.Errors) > 0 {
			return nil, fmt.Errorf("querying d1: %w: %s", statusErr, messages(out.Errors))
		}

		return nil, fmt.Errorf("querying d1: %w", statusErr)
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("decoding d1 response: %w", decodeErr)
	}

	if !out.Success {
		return nil, fmt.Errorf("d1 query failed: %s", messages(out.Errors))
	}

	return &out, nil
}

func (c *d1Conn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	out, err := c.do(ctx, query, args)
	if err != nil {
		return 0, err
	}

	var changes int64
	for _, r := range out.Result {
		changes += r.Meta.Changes
	}

	return changes, nil
}

func (c *d1Conn) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	out, err := c.do(ctx, query, args)
	if err != nil {
		return nil, err
	}

	var rows []Row

	for _, r := range out.Result {
		for _, m := range r.Results {
			rows = append(rows, Row(m))
		}
	}

	return rows, nil
}

func (c *d1Conn) Close() error {
	return nil
}
