package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	def := DefaultConfig()

	assert.Equal(t, "gmail", def.Transport)
	assert.Equal(t, "homemetrics/todo/xsense", def.XSense.TodoLabel)
	assert.Equal(t, "homemetrics/done/xsense", def.XSense.DoneLabel)
	assert.Equal(t, "homemetrics/xsense", def.XSense.ArchiveLabel)
	assert.Equal(t, "homemetrics/todo/blueriot", def.BlueRiot.TodoLabel)
	assert.True(t, def.XSense.Enabled)
	assert.True(t, def.BlueRiot.Enabled)
	assert.Equal(t, []string{"07:00"}, def.ScheduleTimes.Value())
}

func TestBuildStreamsRequiresOneEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.XSense.Enabled = false
	cfg.BlueRiot.Enabled = false

	_, err := cfg.BuildStreams(nil, nil, nil, cfg.BuildNotifier())
	assert.Error(t, err)
}

func TestBuildMailboxClientInvalidTransport(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Transport = "pigeon"

	_, err := cfg.BuildMailboxClient(nil)
	assert.ErrorIs(t, err, errInvalidTransport)
}
