package settings

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intrntsrfr/warden/config"
	"github.com/intrntsrfr/warden/logger"
	"github.com/intrntsrfr/warden/module"
)

const document = `{
	"token": "secret",
	"prefix": "!",
	"modules": {
		"settings": {"enabled": true},
		// toggled from chat
		"ping": {"enabled": false},
		"warn": {"enabled": true, "threshold": 3},
	},
}
`

type fixture struct {
	store  *config.Store
	router *module.Router
	path   string
	admin  module.Caller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(document), 0o600))
	store, err := config.Load(path, logger.Nop())
	require.NoError(t, err)

	r := module.NewRouter(store, logger.Nop())
	root, avail, err := New(store, store, r, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, r.Register(root, avail))

	ping, avail := module.NewBuilder("ping").Execute(func(context.Context, *module.Request) (*discordgo.MessageSend, error) {
		return &discordgo.MessageSend{Content: "pong"}, nil
	}).Root(store)
	require.NoError(t, r.Register(ping, avail))

	return &fixture{
		store:  store,
		router: r,
		path:   path,
		admin:  module.Caller{UserID: "1", Permissions: discordgo.PermissionAdministrator},
	}
}

func (f *fixture) run(t *testing.T, input string) *discordgo.MessageEmbed {
	t.Helper()
	reply := f.router.DispatchText(context.Background(), input, f.admin)
	require.NotNil(t, reply)
	require.Len(t, reply.Embeds, 1)
	return reply.Embeds[0]
}

func TestGet(t *testing.T) {
	f := newFixture(t)

	e := f.run(t, "config get path=modules.warn.threshold")
	assert.Equal(t, "modules.warn.threshold", e.Title)
	assert.Contains(t, e.Description, "3")

	assert.Equal(t, "Unknown setting", f.run(t, "config get modules.nope").Title)
	assert.Equal(t, "Protected setting", f.run(t, "config get token").Title)
}

func TestSetEnablesModule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reply := f.router.DispatchText(ctx, "ping", f.admin)
	require.Len(t, reply.Embeds, 1)
	assert.Equal(t, "Unknown command", reply.Embeds[0].Title)

	e := f.run(t, "config set path=modules.ping.enabled value=true")
	assert.Equal(t, "Updated modules.ping.enabled", e.Title)

	reply = f.router.DispatchText(ctx, "ping", f.admin)
	assert.Equal(t, "pong", reply.Content)

	body, err := os.ReadFile(f.path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "// toggled from chat")
}

func TestSetStringValue(t *testing.T) {
	f := newFixture(t)

	f.run(t, "config set path=modules.warn.threshold value=5")
	raw, err := f.store.Lookup([]string{"modules", "warn", "threshold"})
	require.NoError(t, err)
	assert.JSONEq(t, "5", string(raw))

	f.run(t, "config set prefix ?")
	assert.Equal(t, "?", f.store.Config().Prefix)
}

func TestSetMissingPath(t *testing.T) {
	f := newFixture(t)
	before, err := os.ReadFile(f.path)
	require.NoError(t, err)

	e := f.run(t, "config set path=modules.missing.enabled value=true")
	assert.Equal(t, "Unknown setting", e.Title)

	after, err := os.ReadFile(f.path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSetRejectsInvalid(t *testing.T) {
	f := newFixture(t)

	e := f.run(t, `config set path=modules.warn.enabled value="yes"`)
	assert.Equal(t, "Setting not changed", e.Title)
	enabled, _ := f.store.ModuleEnabled("warn")
	assert.True(t, enabled)
}

func TestRequiresAdministrator(t *testing.T) {
	f := newFixture(t)
	f.admin.Permissions = discordgo.PermissionModerateMembers

	assert.Equal(t, "Missing permissions", f.run(t, "config get path=modules").Title)
}

func TestValueEmbedTruncatesOnRunes(t *testing.T) {
	raw, err := json.Marshal(strings.Repeat("é", maxValueLen+10))
	require.NoError(t, err)

	e := valueEmbed("prefix", raw, module.ColorBlue)
	assert.True(t, utf8.ValidString(e.Description))
	assert.True(t, strings.HasSuffix(e.Description, "é\n...\n```"))
}
