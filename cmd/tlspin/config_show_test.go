// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-tlspin/pkg/config"
)

func TestConfigShow_Table(t *testing.T) {
	resetGlobals(t)
	configPath = writeTempFile(t, "pins.yaml", validPolicy)
	read := captureOutput(t)

	require.NoError(t, runConfigShow(configShowCmd, nil))
	out := read()

	assert.Contains(t, out, "requirePinningForAllAuthorities: true")
	assert.Contains(t, strings.ToUpper(out), "AUTHORITY")
	assert.Contains(t, out, "api.example.com:8443")
	assert.Contains(t, out, "cdn.example.com")
	assert.Contains(t, out, testKeyA[:16]+"...")
	assert.Contains(t, out, "roots (1)")
	assert.Contains(t, out, "|")
}

func TestConfigShow_Empty(t *testing.T) {
	resetGlobals(t)
	configPath = writeTempFile(t, "pins.yaml", "globalPolicy:\n  requirePinningForAllAuthorities: false\n")
	read := captureOutput(t)

	require.NoError(t, runConfigShow(configShowCmd, nil))
	assert.Equal(t, "requirePinningForAllAuthorities: false\n\nNo pins configured\n", read())
}

func TestConfigShow_JSON(t *testing.T) {
	resetGlobals(t)
	configPath = writeTempFile(t, "pins.yaml", validPolicy)
	format = formatJSON
	read := captureOutput(t)

	require.NoError(t, runConfigShow(configShowCmd, nil))

	var got config.Config
	require.NoError(t, json.Unmarshal([]byte(read()), &got))
	require.NotNil(t, got.GlobalPolicy.RequirePinningForAllAuthorities)
	assert.True(t, *got.GlobalPolicy.RequirePinningForAllAuthorities)
	require.Len(t, got.Pins, 2)
	assert.Equal(t, []string{testKeyA}, got.Pins[0].LeafPublicKeys)
	assert.Equal(t, "roots", got.Pins[1].ChainPublicKeySets[0].Name)
}

func TestConfigShow_YAMLDefaults(t *testing.T) {
	resetGlobals(t)
	configPath = writeTempFile(t, "pins.json", `{"pins": [{"authorities": ["a.example.com"], "chainPublicKeySets": [{"publicKeys": ["`+testKeyB+`"]}]}]}`)
	format = formatYAML
	read := captureOutput(t)

	require.NoError(t, runConfigShow(configShowCmd, nil))

	var got config.Config
	require.NoError(t, yaml.Unmarshal([]byte(read()), &got))
	require.NotNil(t, got.GlobalPolicy.RequirePinningForAllAuthorities)
	assert.True(t, *got.GlobalPolicy.RequirePinningForAllAuthorities)
	require.Len(t, got.Pins, 1)
	assert.Equal(t, "chain-set-1", got.Pins[0].ChainPublicKeySets[0].Name)
}

func TestConfigShow_BadFormat(t *testing.T) {
	resetGlobals(t)
	format = "xml"

	err := runConfigShow(configShowCmd, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestShortKeys(t *testing.T) {
	assert.Equal(t, []string{"abc", "0123456789abcdef..."}, shortKeys([]string{"abc", "0123456789abcdef0123"}))
}
