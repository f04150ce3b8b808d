package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oculab/glaucoma-dashboard/internal/config"
)

func TestBuildLoginLimiter(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.NotNil(t, buildLoginLimiter(cfg), "default config throttles logins")

	cfg.RateLimit.Login.Max = 0
	assert.Nil(t, buildLoginLimiter(cfg), "max 0 must disable, not block every login")

	cfg.RateLimit.Login.Max = -1
	assert.Nil(t, buildLoginLimiter(cfg))
}
