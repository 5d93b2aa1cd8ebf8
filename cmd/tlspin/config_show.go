// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-tlspin/pkg/config"
	"github.com/jeremyhahn/go-tlspin/pkg/pinning"
)

// configCmd is the parent command for policy inspection.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Pin policy inspection",
}

// configShowCmd renders the effective pin policy.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective pin policy",
	Long: `Display the pin policy after defaults are applied.

--format text renders one Markdown table row per authority; json and yaml
emit the normalized policy document.`,
	RunE: runConfigShow,
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if err := checkFormat(formatText, formatJSON, formatYAML); err != nil {
		return err
	}
	cfg, reg, err := loadPolicy()
	if err != nil {
		return err
	}

	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(effectiveConfig(cfg), "", "  ")
		if err != nil {
			return fmt.Errorf("%w: %w", ErrConfig, err)
		}
		return writeOutput(append(data, '\n'))
	case formatYAML:
		data, err := yaml.Marshal(effectiveConfig(cfg))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrConfig, err)
		}
		return writeOutput(data)
	default:
		table, err := renderPolicyTable(cfg.Policy(), reg)
		if err != nil {
			return err
		}
		return writeOutput([]byte(table))
	}
}

// effectiveConfig returns cfg with defaults filled in and keys in canonical
// form.
func effectiveConfig(cfg *config.Config) *config.Config {
	required := cfg.Policy().RequirePinningForAllAuthorities
	out := &config.Config{
		GlobalPolicy: config.GlobalPolicy{RequirePinningForAllAuthorities: &required},
	}
	for _, pin := range cfg.DomainPins() {
		out.Pins = append(out.Pins, config.PinFromDomain(pin))
	}
	return out
}

// renderPolicyTable renders the registry as a Markdown table.
func renderPolicyTable(policy pinning.GlobalPolicy, reg *pinning.Registry) (string, error) {
	var buf strings.Builder
	fmt.Fprintf(&buf, "requirePinningForAllAuthorities: %t\n\n", policy.RequirePinningForAllAuthorities)

	if reg.Len() == 0 {
		buf.WriteString("No pins configured\n")
		return buf.String(), nil
	}

	table := tablewriter.NewTable(&buf,
		tablewriter.WithRenderer(renderer.NewMarkdown(tw.Rendition{Streaming: true})),
	)
	table.Header([]string{"Authority", "Leaf Keys", "Chain Key Sets", "Allow Without Pins", "Accept Any Certificate"})

	var rows [][]string
	for _, authority := range reg.Authorities() {
		pin, ok := reg.Lookup(authority)
		if !ok {
			continue
		}
		sets := make([]string, 0, len(pin.ChainKeySets))
		for _, set := range pin.ChainKeySets {
			sets = append(sets, fmt.Sprintf("%s (%d)", set.Name, set.Keys.Len()))
		}
		rows = append(rows, []string{
			authority,
			strings.Join(shortKeys(pin.LeafKeys.Keys()), " "),
			strings.Join(sets, " "),
			strconv.FormatBool(pin.AllowWithoutAnyPins),
			strconv.FormatBool(pin.DangerouslyAcceptAnyCertificate),
		})
	}

	if err := table.Bulk(rows); err != nil {
		return "", fmt.Errorf("%w: %w", ErrFileOperation, err)
	}
	if err := table.Render(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrFileOperation, err)
	}
	return buf.String(), nil
}

// shortKeys abbreviates each key to its first 16 characters.
func shortKeys(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		if len(k) > 16 {
			k = k[:16] + "..."
		}
		out[i] = k
	}
	return out
}
