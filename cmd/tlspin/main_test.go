// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMain_Executes(t *testing.T) {
	resetGlobals(t)

	// Override exitFunc to capture exit calls instead of actually exiting.
	exitCalled := false
	exitFunc = func(int) { exitCalled = true }
	defer func() { exitFunc = os.Exit }()

	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	main()
	assert.False(t, exitCalled)
}

func TestMain_ConfigErrorExitCode(t *testing.T) {
	resetGlobals(t)
	t.Setenv("TLSPIN_CONFIG", "")

	var code int
	exitFunc = func(c int) { code = c }
	defer func() { exitFunc = os.Exit }()

	rootCmd.SetArgs([]string{"check", "--quiet"})
	defer rootCmd.SetArgs(nil)

	main()
	assert.Equal(t, ExitConfigError, code)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{fmt.Errorf("%w: bad", ErrConfig), ExitConfigError},
		{fmt.Errorf("%w: bad", ErrInvalidInput), ExitConfigError},
		{fmt.Errorf("%w: rejected", ErrProbeFailed), ExitProbeFailed},
		{fmt.Errorf("%w: nxdomain", ErrLookupFailed), ExitProbeFailed},
		{fmt.Errorf("%w: disk", ErrFileOperation), ExitProbeFailed},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, exitCode(tc.err), "%v", tc.err)
	}
}

func TestExitCodes_Defined(t *testing.T) {
	assert.Equal(t, 0, ExitSuccess)
	assert.Equal(t, 1, ExitProbeFailed)
	assert.Equal(t, 2, ExitConfigError)
}
