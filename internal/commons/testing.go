// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package commons

// NewTestLogger builds a Logger suitable for unit tests: console-only,
// debug level, no file sink. Does not require a *testing.T so it can be
// shared across packages.
func NewTestLogger() Logger {
	opts := DefaultOptions()
	opts.Level = "debug"
	opts.Filename = ""
	l, err := New(opts)
	if err != nil {
		panic(err)
	}
	return l
}
