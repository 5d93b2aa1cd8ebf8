// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinning_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jeremyhahn/go-tlspin/pkg/pinning"
	"github.com/jeremyhahn/go-tlspin/pkg/pinning/mocks"
)

func newEngineWithReporter(t *testing.T, reporter pinning.Reporter, pins ...pinning.DomainPin) *pinning.Engine {
	t.Helper()
	reg, err := pinning.BuildRegistry(pins)
	require.NoError(t, err)
	engine, err := pinning.NewEngine(&pinning.EngineConfig{
		Registry: reg,
		Policy:   pinning.DefaultGlobalPolicy(),
		Reporter: reporter,
	})
	require.NoError(t, err)
	return engine
}

func TestEngine_ReportsThroughMock(t *testing.T) {
	ctrl := gomock.NewController(t)
	reporter := mocks.NewMockReporter(ctrl)

	engine := newEngineWithReporter(t, reporter, pinning.DomainPin{
		Authorities: []string{"a.com"},
		LeafKeys:    pinning.NewKeySet("k1"),
	})

	reporter.EXPECT().Report(gomock.Cond(func(x any) bool {
		e, ok := x.(pinning.Event)
		if !ok {
			return false
		}
		return e.Decision.Accepted && e.Authority == "a.com" && e.Level == slog.LevelDebug
	})).Times(1)
	reporter.EXPECT().Report(gomock.Cond(func(x any) bool {
		e, ok := x.(pinning.Event)
		if !ok {
			return false
		}
		return !e.Decision.Accepted &&
			e.Decision.Reason == pinning.ReasonLeafKeyMismatch &&
			e.LeafKey == "k2" &&
			e.Level == slog.LevelError
	})).Times(1)

	assert.True(t, engine.Decide(pinning.Input{Authority: "a.com", LeafKey: "k1", ChainKeys: []string{"k1"}}).Accepted)
	assert.False(t, engine.Decide(pinning.Input{Authority: "a.com", LeafKey: "k2", ChainKeys: []string{"k2"}}).Accepted)
}

func TestEngine_ReporterDoesNotAffectDecision(t *testing.T) {
	ctrl := gomock.NewController(t)
	reporter := mocks.NewMockReporter(ctrl)
	reporter.EXPECT().Report(gomock.Any()).AnyTimes()

	withMock := newEngineWithReporter(t, reporter, pinning.DomainPin{Authorities: []string{"a.com"}, LeafKeys: pinning.NewKeySet("k1")})
	withNop := newEngineWithReporter(t, pinning.NopReporter(), pinning.DomainPin{Authorities: []string{"a.com"}, LeafKeys: pinning.NewKeySet("k1")})

	for _, key := range []string{"k1", "k2"} {
		in := pinning.Input{Authority: "a.com", LeafKey: key, ChainKeys: []string{key}}
		assert.Equal(t, withNop.Decide(in), withMock.Decide(in))
	}
}

func TestSlogReporter_RejectionIncludesKeyMaterial(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	engine := newEngineWithReporter(t, pinning.NewSlogReporter(logger), pinning.DomainPin{
		Authorities:  []string{"a.com"},
		ChainKeySets: []pinning.PublicKeySet{pinning.NewPublicKeySet("roots", "r1")},
	})
	engine.Decide(pinning.Input{Authority: "A.com", LeafKey: "leaf", ChainKeys: []string{"leaf", "int"}})

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "ERROR", record["level"])
	assert.Equal(t, "pinning", record["component"])
	assert.Equal(t, "a.com", record["authority"])
	assert.Equal(t, "ChainKeySetUnsatisfied", record["reason"])
	assert.Equal(t, "leaf", record["leaf_key"])
	assert.Equal(t, []any{"leaf", "int"}, record["chain_keys"])
	assert.Equal(t, "roots", record["key_set"])
}

func TestSlogReporter_AcceptOmitsKeyMaterial(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	reg, err := pinning.BuildRegistry(nil)
	require.NoError(t, err)
	engine, err := pinning.NewEngine(&pinning.EngineConfig{
		Registry: reg,
		Reporter: pinning.NewSlogReporter(logger),
	})
	require.NoError(t, err)

	assert.True(t, engine.Decide(pinning.Input{Authority: "a.com", LeafKey: "leaf", ChainKeys: []string{"leaf"}}).Accepted)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "DEBUG", record["level"])
	assert.Equal(t, "accept", record["decision"])
	assert.NotContains(t, record, "leaf_key")
	assert.NotContains(t, record, "reason")
}

func TestSlogReporter_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	reporter := pinning.NewSlogReporter(logger)

	reporter.Report(pinning.Event{Authority: "a.com", Decision: pinning.Accept(), Level: slog.LevelDebug, Message: "quiet"})
	assert.Empty(t, buf.String())

	reporter.Report(pinning.Event{Authority: "a.com", Decision: pinning.Reject(pinning.ReasonLeafKeyMismatch), Level: slog.LevelError, Message: "loud"})
	assert.Contains(t, buf.String(), "loud")
	assert.Contains(t, buf.String(), "reason=LeafKeyMismatch")
}

func TestMultiReporter(t *testing.T) {
	var first, second []pinning.Event
	multi := pinning.MultiReporter{
		pinning.ReporterFunc(func(e pinning.Event) { first = append(first, e) }),
		nil,
		pinning.ReporterFunc(func(e pinning.Event) { second = append(second, e) }),
	}

	multi.Report(pinning.Event{Authority: "a.com"})

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, "a.com", second[0].Authority)
}
