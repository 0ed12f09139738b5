// Copyright 2025 The Hotwheels API Authors
// SPDX-License-Identifier: Apache-2.0

package httputils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Defaults for RetryPolicy.
const (
	DefaultAttempts = 3
	DefaultDelay    = time.Second
)

// RetryPolicy is a fixed-delay retry policy: no exponential backoff and no
// jitter.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first one.
	Attempts int

	// Delay is the pause between two attempts.
	Delay time.Duration

	// Retryable reports whether a response status deserves another attempt.
	// Transport errors are always retried.
	Retryable func(statusCode int) bool
}

// RetryOnErrorStatus retries on every status outside of 2xx.
func RetryOnErrorStatus(statusCode int) bool {
	return !isSuccess(statusCode)
}

// RetryOnStatus retries only on the given statuses.
func RetryOnStatus(codes ...int) func(int) bool {
	return func(statusCode int) bool {
		return slices.Contains(codes, statusCode)
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultAttempts
	}

	if p.Delay < 0 {
		p.Delay = 0
	}

	if p.Retryable == nil {
		p.Retryable = RetryOnErrorStatus
	}

	return p
}

func isSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode <= 299
}

// StatusError is reported when the server answered with a non-2xx status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d", e.StatusCode)
}

// FetchError is returned once a request has exhausted its attempts. Err is
// the error of the last attempt.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("giving up after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ClientOptions configures NewClient.
type ClientOptions struct {
	Policy            RetryPolicy
	Timeout           time.Duration // zero means no client timeout
	UserAgent         string
	Headers           map[string]string
	RequestsPerSecond float64 // zero disables rate limiting
	TraceWriter       io.Writer
	TraceBody         bool
	Transport         http.RoundTripper // defaults to NewTransport()
	Logger            logrus.FieldLogger
}

// reason renders the cause of a failed attempt without repeating the URL,
// which callers already log on their own.
func reason(resp *resty.Response, err error) string {
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return uerr.Err.Error()
		}

		return err.Error()
	}

	if resp == nil {
		return "no response"
	}

	return (&StatusError{StatusCode: resp.StatusCode()}).Error()
}

// restyLogger demotes resty's own messages to debug; failures are reported by
// the retry hook and by the caller.
type restyLogger struct {
	log logrus.FieldLogger
}

func (l restyLogger) Errorf(format string, v ...any) { l.log.Debugf(format, v...) }
func (l restyLogger) Warnf(format string, v ...any)  { l.log.Debugf(format, v...) }
func (l restyLogger) Debugf(format string, v ...any) { l.log.Debugf(format, v...) }

// NewClient builds a resty client on top of the RoundTripper chain with the
// given retry policy. Every failed attempt but the last one logs a warning.
func NewClient(opts ClientOptions) *resty.Client {
	policy := opts.Policy.withDefaults()

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	var transport http.RoundTripper = NewTransport()
	if opts.Transport != nil {
		transport = opts.Transport
	}

	transport = &LoggingRoundTripper{
		Transport: transport,
		Writer:    opts.TraceWriter,
		DumpBody:  opts.TraceBody,
	}

	headers := map[string]string{"Accept": "*/*"}
	for k, v := range opts.Headers {
		headers[k] = v
	}

	if opts.UserAgent != "" {
		headers["User-Agent"] = opts.UserAgent
	}

	transport = &AppendRequestHeadersRoundTripper{
		Transport: transport,
		Headers:   headers,
	}

	if opts.RequestsPerSecond > 0 {
		transport = &RateLimitRoundTripper{
			Transport: transport,
			Limiter:   rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		}
	}

	client := resty.New().
		SetLogger(restyLogger{logger}).
		SetTransport(transport).
		SetTimeout(opts.Timeout).
		SetRetryCount(policy.Attempts - 1).
		SetRetryWaitTime(policy.Delay).
		SetRetryMaxWaitTime(policy.Delay).
		SetRetryAfter(func(_ *resty.Client, _ *resty.Response) (time.Duration, error) {
			return policy.Delay, nil
		}).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}

			return resp != nil && policy.Retryable(resp.StatusCode())
		}).
		AddRetryHook(func(resp *resty.Response, err error) {
			if resp == nil || resp.Request == nil {
				logger.Warnf("Retrying after error: %s", reason(resp, err))

				return
			}

			// hooks also run after the final attempt
			if attempt := resp.Request.Attempt; attempt < policy.Attempts {
				logger.Warnf("Retrying (%d/%d) after error: %s", attempt, policy.Attempts, reason(resp, err))
			}
		})

	return client
}

// Page is a successfully fetched document.
type Page struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Fetcher retrieves documents with GET, retrying per its RetryPolicy.
type Fetcher struct {
	client   *resty.Client
	attempts int
}

// NewFetcher returns a Fetcher. Unless opts.Policy says otherwise every
// non-2xx status is retried.
func NewFetcher(opts ClientOptions) *Fetcher {
	opts.Policy = opts.Policy.withDefaults()

	return &Fetcher{
		client:   NewClient(opts),
		attempts: opts.Policy.Attempts,
	}
}

func attempts(resp *resty.Response, fallback int) int {
	if resp != nil && resp.Request != nil && resp.Request.Attempt > 0 {
		return resp.Request.Attempt
	}

	return fallback
}

// Fetch issues a GET for rawURL. On failure it returns a *FetchError whose
// Err is the error of the last attempt.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	resp, err := f.client.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Attempts: attempts(resp, f.attempts), Err: err}
	}

	if !isSuccess(resp.StatusCode()) {
		return nil, &FetchError{
			URL:      rawURL,
			Attempts: attempts(resp, f.attempts),
			Err:      &StatusError{StatusCode: resp.StatusCode()},
		}
	}

	return &Page{
		URL:         rawURL,
		StatusCode:  resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
		Body:        resp.Body(),
	}, nil
}
