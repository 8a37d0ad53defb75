package env

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvConfig(t *testing.T) {
	ctx := context.Background()

	os.Setenv("GIFT_TEST_UINT", "42")
	os.Setenv("GIFT_TEST_DURATION", "3s")
	defer os.Unsetenv("GIFT_TEST_UINT")
	defer os.Unsetenv("GIFT_TEST_DURATION")

	assert.EqualValues(t, 42, NewUint64Config("gift_test_uint", 7).Get(ctx))
	assert.Equal(t, 3*time.Second, NewDurationConfig("GIFT_TEST_DURATION", time.Second).Get(ctx))
	assert.Equal(t, "fallback", NewStringConfig("GIFT_TEST_MISSING", "fallback").Get(ctx))
	assert.True(t, NewBoolConfig("GIFT_TEST_MISSING", true).Get(ctx))
}
