package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/profilegate/screener/internal/adapters/profileapi"
	"github.com/profilegate/screener/internal/domain/model"
	"github.com/profilegate/screener/internal/mocks"
)

const testNormalizedID = "https://www.example.com/in/jane-doe/"

func TestNewProber_RequiresProvider(t *testing.T) {
	_, err := NewProber(ProberOptions{})
	require.Error(t, err)
}

func TestProber_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	provider := mocks.NewMockProfileProvider(ctrl)
	provider.EXPECT().
		FetchRecord(gomock.Any(), testNormalizedID).
		Return(&model.RecordSummary{ID: "rec-1", DisplayName: "Jane Doe"}, nil).
		Times(1)

	p, err := NewProber(ProberOptions{Provider: provider, Timeout: time.Second})
	require.NoError(t, err)

	res := p.Probe(context.Background(), testNormalizedID)

	require.True(t, res.Passed)
	assert.Equal(t, model.StageProbe, res.Stage)
	require.NotNil(t, res.Summary)
	assert.Equal(t, "rec-1", res.Summary.ID)
}

func TestProber_FailureModes(t *testing.T) {
	tests := []struct {
		name    string
		summary *model.RecordSummary
		err     error
		errPart string
	}{
		{"not found", nil, profileapi.ErrRecordNotFound, "record not found"},
		{"forbidden", nil, profileapi.ErrRecordForbidden, "forbidden"},
		{"provider error", nil, errors.New("connection reset"), "provider fetch failed"},
		{"incomplete record", &model.RecordSummary{ID: "rec-1"}, nil, "minimum field set"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			provider := mocks.NewMockProfileProvider(ctrl)
			provider.EXPECT().
				FetchRecord(gomock.Any(), testNormalizedID).
				Return(tt.summary, tt.err).
				Times(1)

			p, err := NewProber(ProberOptions{Provider: provider})
			require.NoError(t, err)

			res := p.Probe(context.Background(), testNormalizedID)

			require.False(t, res.Passed)
			assert.Nil(t, res.Summary)
			require.NotEmpty(t, res.Errors)
			assert.Contains(t, res.Errors[0], tt.errPart)
		})
	}
}
