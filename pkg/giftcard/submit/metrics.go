package submit

import (
	"context"

	"github.com/code-payments/gift-protocol/pkg/metrics"
)

const (
	metricsStructName = "giftcard.submit"

	submissionOutcomeEventName = "TransactionSubmissionOutcome"
)

func recordOutcomeEvent(ctx context.Context, result *Result) {
	kvs := map[string]interface{}{
		"signature":     result.Signature.String(),
		"state":         result.State.String(),
		"status_checks": result.StatusChecks,
	}
	if result.Cause != nil {
		kvs["cause"] = result.Cause.Error()
	}
	metrics.RecordEvent(ctx, submissionOutcomeEventName, kvs)
}
