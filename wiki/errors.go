// Copyright 2025 The Hotwheels API Authors
// SPDX-License-Identifier: Apache-2.0

package wiki

import (
	"errors"
	"fmt"
)

// Lookup errors returned by a Repository.
var (
	ErrNotFound         = errors.New("not found")
	ErrDesignerNotFound = fmt.Errorf("designer %w", ErrNotFound)
)

// ItemKind identifies the kind of detail page an ItemError comes from.
type ItemKind int

const (
	// ItemDesigner is a designer detail page.
	ItemDesigner ItemKind = iota
	// ItemHotwheel is a hotwheel detail page.
	ItemHotwheel
)

func (k ItemKind) String() string {
	switch k {
	case ItemDesigner:
		return "designer"
	case ItemHotwheel:
		return "hotwheel"
	default:
		return fmt.Sprintf("ItemKind(%d)", int(k))
	}
}

// ItemError reports a failure to fetch, parse or store a single detail page.
// A run logs it and moves on to the next link.
type ItemError struct {
	Kind ItemKind
	URL  string
	Err  error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.URL, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// Stage names the step of a run that failed.
type Stage string

// Run stages.
const (
	StageClear    Stage = "clear"
	StageDiscover Stage = "discover"
	StageScrape   Stage = "scrape"
)

// RunError is a failure that aborts a whole run.
type RunError struct {
	Stage Stage
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// IsItemError reports whether err is confined to a single detail page.
func IsItemError(err error) bool {
	var itemErr *ItemError

	return errors.As(err, &itemErr)
}
