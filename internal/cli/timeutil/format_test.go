package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatLocalZeroValue(t *testing.T) {
	assert.Equal(t, "-", FormatLocal(time.Time{}))
}

func TestFormatLocalNonZeroValue(t *testing.T) {
	tm := time.Date(2024, time.March, 2, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, tm.Local().Format(LocalTimeFormat), FormatLocal(tm))
}

func TestFormatUptimeDays(t *testing.T) {
	assert.Equal(t, "3d 0h 30m 15s", FormatUptime("72h30m15s"))
}

func TestFormatUptimeFallsBackOnParseError(t *testing.T) {
	assert.Equal(t, "not-a-duration", FormatUptime("not-a-duration"))
}
