package info

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intrntsrfr/warden/logger"
	"github.com/intrntsrfr/warden/module"
)

type config map[string]bool

func (c config) ModuleEnabled(name string) (bool, bool) {
	v, ok := c[name]
	return v, ok
}

func (c config) DecodeModule(string, any) (bool, error) { return false, nil }

type guilds int

func (g guilds) GuildCount() int { return int(g) }

func TestInfo(t *testing.T) {
	cfg := config{"info": true}
	start := time.Unix(1700000000, 0)
	root, avail := New(cfg, guilds(7), start)
	require.True(t, avail.Enabled())

	r := module.NewRouter(cfg, logger.Nop())
	require.NoError(t, r.Register(root, avail))

	reply := r.DispatchText(context.Background(), "info", module.Caller{})
	require.Len(t, reply.Embeds, 1)
	got := make(map[string]string)
	for _, f := range reply.Embeds[0].Fields {
		got[f.Name] = f.Value
	}
	assert.Equal(t, map[string]string{
		"Golang version": runtime.Version(),
		"Running since":  "<t:1700000000:R>",
		"Total guilds":   "7",
	}, got)
}

func TestInfoMissingEntry(t *testing.T) {
	root, avail := New(config{}, guilds(0), time.Now())
	assert.Equal(t, module.StatusMissing, avail.Status)
	assert.False(t, root.Enabled())
}
