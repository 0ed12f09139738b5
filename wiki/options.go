// Copyright 2025 The Hotwheels API Authors
// SPDX-License-Identifier: Apache-2.0

package wiki

import (
	"time"

	"github.com/nulfrost/hotwheels-api/utils/httputils"
)

// Wiki defaults.
const (
	DefaultBaseURL       = "https://hotwheels.fandom.com"
	DefaultDesignersPath = "/wiki/Category:Designers"
	DefaultHotwheelsPath = "/wiki/Hot_Wheels"
	DefaultUserAgent     = "hotwheels-api/unknown"
	DefaultTitle         = "Designer"
)

// Options configures a Client and the Runner built on top of it.
type Options struct {
	// BaseURL is the wiki origin every relative link is resolved against
	BaseURL string

	// DesignersPath is the category page listing every designer
	DesignersPath string

	// HotwheelsPath is the page linking to the per-year index pages
	HotwheelsPath string

	// ExcludedDesigners drops designer names containing any of these words
	// (case-insensitive)
	ExcludedDesigners []string

	// UserAgent is the User-Agent header to use in HTTP requests
	UserAgent string

	// Attempts is the total number of tries per page
	Attempts int

	// RetryDelay is the fixed pause between attempts
	RetryDelay time.Duration

	// Timeout bounds a single attempt, zero leaves it to the transport
	Timeout time.Duration

	// Concurrency is the number of detail pages fetched at once, 1 or less
	// means sequential
	Concurrency int

	// RequestsPerSecond throttles requests, zero disables throttling
	RequestsPerSecond float64

	// Enables light tracing of HTTP requests and responses
	EnableHTTPTrace bool

	// Enables full HTTP body tracing
	EnableHTTPBodyTrace bool
}

// DefaultOptions returns the options used against the live wiki.
func DefaultOptions() *Options {
	return &Options{
		BaseURL:           DefaultBaseURL,
		DesignersPath:     DefaultDesignersPath,
		HotwheelsPath:     DefaultHotwheelsPath,
		ExcludedDesigners: []string{"Retool"},
		UserAgent:         DefaultUserAgent,
		Attempts:          httputils.DefaultAttempts,
		RetryDelay:        httputils.DefaultDelay,
		Concurrency:       1,
	}
}
