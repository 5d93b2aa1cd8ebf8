// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinning

// Reason explains a rejection. Accepted decisions carry ReasonNone.
type Reason string

const (
	// ReasonNone is the reason attached to accepted decisions.
	ReasonNone Reason = ""

	// ReasonNoChainOrCertificate indicates the leaf key or chain was absent.
	ReasonNoChainOrCertificate Reason = "NoChainOrCertificate"

	// ReasonNoResolvableAuthority indicates the target authority is unknown.
	ReasonNoResolvableAuthority Reason = "NoResolvableAuthority"

	// ReasonPinningRequiredButAbsent indicates no pin exists for the
	// authority while the global policy requires one.
	ReasonPinningRequiredButAbsent Reason = "PinningRequiredButAbsent"

	// ReasonTLSErrorsNotAccepted indicates platform validation failed and
	// the policy does not override it.
	ReasonTLSErrorsNotAccepted Reason = "TlsErrorsNotAccepted"

	// ReasonNoPinsConfiguredAndNotAllowed indicates a pin without keys that
	// does not set AllowWithoutAnyPins.
	ReasonNoPinsConfiguredAndNotAllowed Reason = "NoPinsConfiguredAndNotAllowed"

	// ReasonLeafKeyMismatch indicates the leaf key is not in LeafKeys.
	ReasonLeafKeyMismatch Reason = "LeafKeyMismatch"

	// ReasonChainKeySetUnsatisfied indicates a chain key set had no match.
	ReasonChainKeySetUnsatisfied Reason = "ChainKeySetUnsatisfied"
)

// Reasons lists every rejection reason.
var Reasons = []Reason{
	ReasonNoChainOrCertificate,
	ReasonNoResolvableAuthority,
	ReasonPinningRequiredButAbsent,
	ReasonTLSErrorsNotAccepted,
	ReasonNoPinsConfiguredAndNotAllowed,
	ReasonLeafKeyMismatch,
	ReasonChainKeySetUnsatisfied,
}

// Decision is the outcome of a single pinning evaluation.
type Decision struct {
	// Accepted is true when the connection may proceed.
	Accepted bool

	// Reason is set for rejections.
	Reason Reason
}

// Accept returns the accepting decision.
func Accept() Decision {
	return Decision{Accepted: true}
}

// Reject returns a rejecting decision with the given reason.
func Reject(reason Reason) Decision {
	return Decision{Reason: reason}
}

// String returns "accept" or "reject(<reason>)".
func (d Decision) String() string {
	if d.Accepted {
		return "accept"
	}
	return "reject(" + string(d.Reason) + ")"
}
