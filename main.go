// Copyright 2025 The Hotwheels API Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/nulfrost/hotwheels-api/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
