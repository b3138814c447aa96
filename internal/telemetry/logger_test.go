package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/cmdrvl/fingerprint/internal/telemetry"
	"github.com/stretchr/testify/assert"
)

func TestDefaultLogger_RespectsLevel(t *testing.T) {
	l := telemetry.NewDefaultLogger(telemetry.LogLevelError, telemetry.LogFormatHuman)
	// Below the error threshold; exercised only for panic-freedom since
	// output goes through the standard logger, not a capturable writer.
	assert.NotPanics(t, func() {
		l.LogProgress(context.Background(), telemetry.ProgressLog{Timestamp: time.Now(), Processed: 1})
		l.LogWarning(context.Background(), telemetry.WarningLog{Timestamp: time.Now(), Code: "E_PARSE"})
		l.LogRefusal(context.Background(), telemetry.RefusalLog{Timestamp: time.Now(), Code: "E_BAD_INPUT"})
	})
}
