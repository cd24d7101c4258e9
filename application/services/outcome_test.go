package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type countingRecorder struct {
	ops map[string][]bool
}

func (r *countingRecorder) RecordBestEffort(_ context.Context, operation string, succeeded bool) {
	if r.ops == nil {
		r.ops = map[string][]bool{}
	}
	r.ops[operation] = append(r.ops[operation], succeeded)
}

func TestLoggingObserver_LogsFailuresAndRecords(t *testing.T) {
	// Arrange
	core, logs := observer.New(zap.DebugLevel)
	recorder := &countingRecorder{}
	obs := NewLoggingObserver(zap.New(core), recorder)

	// Act
	obs.Observe(context.Background(), Outcome{Op: OpBlobDelete, Target: "s3://b/k", Count: 1, Err: errors.New("denied")})
	obs.Observe(context.Background(), Outcome{Op: OpStatusCleanup, Target: "dune", Count: 3})

	// Assert
	warnings := logs.FilterLevelExact(zap.WarnLevel).All()
	if assert.Len(t, warnings, 1) {
		assert.Equal(t, OpBlobDelete, warnings[0].ContextMap()["operation"])
	}
	assert.Equal(t, []bool{false}, recorder.ops[OpBlobDelete])
	assert.Equal(t, []bool{true}, recorder.ops[OpStatusCleanup])
}

func TestOutcomeObserverFunc(t *testing.T) {
	var got Outcome
	fn := OutcomeObserverFunc(func(_ context.Context, o Outcome) { got = o })

	fn.Observe(context.Background(), Outcome{Op: OpCoverLookup})

	assert.Equal(t, OpCoverLookup, got.Op)
	assert.True(t, got.Succeeded())
}
