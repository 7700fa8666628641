package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/oncall-roster/pkg/core/distribution"
	"github.com/jakechorley/oncall-roster/pkg/core/model"
)

func shortfallReport(t *testing.T) *distribution.ShortfallReport {
	return &distribution.ShortfallReport{
		Entries: []distribution.ShortfallEntry{
			{Date: mustDate(t, "2025-03-04"), PostType: "ML", Site: "North", Period: model.PeriodMorning, Availability: 0.25, LowAvailability: true},
			{Date: mustDate(t, "2025-03-05"), PostType: "CA", Site: "South", Period: model.PeriodAfternoon, Availability: 0.8},
		},
		ByPostType: map[model.PostType]int{"ML": 1, "CA": 1},
	}
}

func TestNotifyShortfall_SendsToEveryRecipient(t *testing.T) {
	mailer := &mockMailer{}

	sent, err := NotifyShortfall(context.Background(), mailer, zap.NewNop(), []string{"a@example.com", "b@example.com"}, "Week 10", shortfallReport(t))
	require.NoError(t, err)

	assert.Equal(t, 2, sent)
	require.Len(t, mailer.sent, 2)
	parts := strings.SplitN(mailer.sent[0], "|", 3)
	assert.Equal(t, "a@example.com", parts[0])
	assert.Equal(t, "2 unfilled slots in Week 10", parts[1])
	assert.Contains(t, parts[2], "CA: 1\nML: 1\n")
	assert.Contains(t, parts[2], "2025-03-04 ML North (morning) - low availability, 25% of staff free\n")
	assert.Contains(t, parts[2], "2025-03-05 CA South (afternoon)\n")
}

func TestNotifyShortfall_NothingToSend(t *testing.T) {
	mailer := &mockMailer{}

	sent, err := NotifyShortfall(context.Background(), mailer, zap.NewNop(), []string{"a@example.com"}, "Week 10", &distribution.ShortfallReport{})
	require.NoError(t, err)
	assert.Zero(t, sent)

	sent, err = NotifyShortfall(context.Background(), mailer, zap.NewNop(), nil, "Week 10", shortfallReport(t))
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, mailer.sent)
}

func TestNotifyShortfall_StopsOnError(t *testing.T) {
	mailer := &mockMailer{failOn: "b@example.com"}

	sent, err := NotifyShortfall(context.Background(), mailer, zap.NewNop(), []string{"a@example.com", "b@example.com", "c@example.com"}, "", shortfallReport(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to notify b@example.com")
	assert.Equal(t, 1, sent)
	assert.Contains(t, mailer.sent[0], "2 unfilled slots in roster")
}
