package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/oncall-roster/pkg/core/distribution"
	"github.com/jakechorley/oncall-roster/pkg/core/model"
)

// Mailer sends plain text emails
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// NotifyShortfall emails the list of unfilled slots to every recipient. Nothing is sent when
// the report is empty. It returns how many emails were sent.
func NotifyShortfall(
	ctx context.Context,
	mailer Mailer,
	logger *zap.Logger,
	recipients []string,
	planningName string,
	report *distribution.ShortfallReport,
) (int, error) {
	if report == nil || report.Total() == 0 {
		logger.Debug("No shortfall, skipping notification")
		return 0, nil
	}
	if len(recipients) == 0 {
		logger.Warn("Shortfall found but no recipients configured", zap.Int("unfilled", report.Total()))
		return 0, nil
	}

	subject, body := shortfallEmail(planningName, report)

	sent := 0
	for _, to := range recipients {
		if err := mailer.SendEmail(ctx, to, subject, body); err != nil {
			return sent, fmt.Errorf("failed to notify %s: %w", to, err)
		}
		sent++
		logger.Debug("Sent shortfall notification", zap.String("to", to))
	}

	logger.Info("Shortfall notifications sent", zap.Int("count", sent), zap.Int("unfilled", report.Total()))
	return sent, nil
}

// shortfallEmail formats the subject and body of a shortfall notification
func shortfallEmail(planningName string, report *distribution.ShortfallReport) (string, string) {
	if planningName == "" {
		planningName = "roster"
	}
	subject := fmt.Sprintf("%d unfilled slots in %s", report.Total(), planningName)

	var b strings.Builder
	fmt.Fprintf(&b, "The distribution of %s left %d slots open.\n\n", planningName, report.Total())
	for _, pt := range report.PostTypes() {
		fmt.Fprintf(&b, "%s: %d\n", pt, report.ByPostType[pt])
	}
	b.WriteString("\n")
	for _, e := range report.Entries {
		fmt.Fprintf(&b, "%s %s %s (%s)", e.Date.Format(model.DateLayout), e.PostType, e.Site, e.Period)
		if e.LowAvailability {
			fmt.Fprintf(&b, " - low availability, %.0f%% of staff free", e.Availability*100)
		}
		b.WriteString("\n")
	}
	return subject, b.String()
}
