package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatus_Terminal(t *testing.T) {
	assert.False(t, JobStatusPending.Terminal())
	assert.False(t, JobStatusRunning.Terminal())
	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
}

func TestJobStatus_UnmarshalText(t *testing.T) {
	var s JobStatus
	require.NoError(t, s.UnmarshalText([]byte(" Running ")))
	assert.Equal(t, JobStatusRunning, s)

	require.Error(t, s.UnmarshalText([]byte("paused")))
}

func TestCreateJobRequest_Validate(t *testing.T) {
	valid := CreateJobRequest{SubjectID: uuid.NewString(), Category: CategoryEngineering}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name string
		req  CreateJobRequest
	}{
		{"empty subject", CreateJobRequest{Category: CategoryEngineering}},
		{"non-uuid subject", CreateJobRequest{SubjectID: "abc", Category: CategoryEngineering}},
		{"invalid category", CreateJobRequest{SubjectID: uuid.NewString(), Category: Category("sales")}},
		{"negative attempts", CreateJobRequest{SubjectID: uuid.NewString(), Category: CategoryDesign, MaxAttempts: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.req.Validate())
		})
	}
}
