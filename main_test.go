package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun_InvalidConfigReturnsExitCode(t *testing.T) {
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("AWS_USE_SECRETS", "false")
	t.Setenv("MONGO_URL", "")

	assert.Equal(t, 1, run())
}
