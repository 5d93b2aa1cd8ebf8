// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-tlspin/pkg/config"
	"github.com/jeremyhahn/go-tlspin/pkg/spkipin"
)

// checkCmd validates the pin policy.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the pin policy",
	Long: `Load the pin policy, build the pin registry, and report problems.

Duplicate authorities and pins without authorities are fatal (exit 2).
Keys that are not 64 hex characters can never match a computed SPKI pin
and are reported as warnings; --strict turns them into errors.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().Bool("strict", false, "treat warnings as errors")
}

func runCheck(cmd *cobra.Command, args []string) error {
	strict, _ := cmd.Flags().GetBool("strict")

	cfg, reg, err := loadPolicy()
	if err != nil {
		return err
	}

	warnings := policyWarnings(cfg)
	if strict && warnings > 0 {
		return fmt.Errorf("%w: %d warning(s) in strict mode", ErrConfig, warnings)
	}

	out := fmt.Sprintf("policy OK: %d pin(s), %d authorities, requirePinningForAllAuthorities=%t, %d warning(s)\n",
		len(cfg.Pins), reg.Len(), cfg.Policy().RequirePinningForAllAuthorities, warnings)
	return writeOutput([]byte(out))
}

// policyWarnings logs non-fatal policy problems and returns their count.
func policyWarnings(cfg *config.Config) int {
	warnings := 0
	checkKey := func(i int, field, key string) {
		if err := spkipin.ValidatePin(key); err != nil {
			slog.Warn("key is not a hex SHA-256 SPKI pin and will never match",
				"pin", i, "field", field, "key", key)
			warnings++
		}
	}

	for i, pin := range cfg.Pins {
		for _, k := range pin.LeafPublicKeys {
			checkKey(i, "leafPublicKeys", k)
		}
		for _, set := range pin.ChainPublicKeySets {
			for _, k := range set.PublicKeys {
				checkKey(i, "chainPublicKeySets", k)
			}
		}
		if pin.DangerouslyAcceptAnyCertificate {
			slog.Warn("dangerouslyAcceptAnyCertificate is enabled", "pin", i, "authorities", pin.Authorities)
			warnings++
		}
		if pin.AllowWithoutAnyPins && len(pin.LeafPublicKeys) == 0 && len(pin.ChainPublicKeySets) == 0 {
			slog.Info("pin accepts any certificate that passes platform validation",
				"pin", i, "authorities", pin.Authorities)
		}
	}
	return warnings
}
