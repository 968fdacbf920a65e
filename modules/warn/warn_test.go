package warn

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intrntsrfr/warden/database"
	"github.com/intrntsrfr/warden/logger"
	"github.com/intrntsrfr/warden/module"
)

const (
	moderator = "100000000000000001"
	member    = "200000000000000002"
)

// fakeConfig maps module names to their raw config entry.
type fakeConfig map[string]string

func (f fakeConfig) ModuleEnabled(name string) (bool, bool) {
	raw, ok := f[name]
	if !ok {
		return false, false
	}
	var e struct {
		Enabled bool `json:"enabled"`
	}
	_ = json.Unmarshal([]byte(raw), &e)
	return e.Enabled, true
}

func (f fakeConfig) DecodeModule(name string, v any) (bool, error) {
	raw, ok := f[name]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal([]byte(raw), v)
}

type fakePlatform struct {
	dms    []string
	dmFail bool
}

func (p *fakePlatform) User(uid string) (*discordgo.User, error) {
	if uid != member {
		return nil, errors.New("unknown user")
	}
	return &discordgo.User{ID: uid, Username: "kate"}, nil
}

func (p *fakePlatform) SendDirect(uid string, msg *discordgo.MessageSend) error {
	if p.dmFail {
		return errors.New("cannot send messages to this user")
	}
	p.dms = append(p.dms, uid)
	return nil
}

type fixture struct {
	router   *module.Router
	store    *database.Collection[Record]
	platform *fakePlatform
	cfg      fakeConfig
}

func newFixture(t *testing.T, entry string) *fixture {
	t.Helper()
	now = func() time.Time { return time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { now = time.Now })

	db, err := database.NewJsonDatabase("")
	require.NoError(t, err)
	f := &fixture{
		store:    database.NewCollection[Record](db, Collection),
		platform: &fakePlatform{},
		cfg:      fakeConfig{"warn": entry},
	}
	root, avail, err := New(f.cfg, f.store, f.platform, logger.Nop())
	require.NoError(t, err)
	f.router = module.NewRouter(f.cfg, logger.Nop())
	require.NoError(t, f.router.Register(root, avail))
	return f
}

func (f *fixture) run(t *testing.T, input string) *discordgo.MessageEmbed {
	t.Helper()
	reply := f.router.DispatchText(context.Background(), input, module.Caller{
		UserID:      moderator,
		Permissions: discordgo.PermissionModerateMembers,
	})
	require.NotNil(t, reply)
	require.Len(t, reply.Embeds, 1)
	return reply.Embeds[0]
}

func fieldNames(e *discordgo.MessageEmbed) []string {
	var names []string
	for _, f := range e.Fields {
		names = append(names, f.Name)
	}
	return names
}

func TestAddAndList(t *testing.T) {
	f := newFixture(t, `{"enabled": true}`)

	e := f.run(t, "warn add user="+member+" reason=\"spam in general\"")
	assert.Equal(t, "User warned", e.Title)
	assert.NotContains(t, fieldNames(e), "Threshold reached")

	f.run(t, "warn add "+member)

	rec, err := f.store.FindOne(context.Background(), member)
	require.NoError(t, err)
	assert.Equal(t, []Warning{
		{Reason: "spam in general", IssuedBy: moderator, Date: "2024-05-02 08:00:00 UTC"},
		{Reason: defaultReason, IssuedBy: moderator, Date: "2024-05-02 08:00:00 UTC"},
	}, rec.Warnings)

	e = f.run(t, "warn list user="+member)
	assert.Equal(t, "Warnings", e.Title)
	require.Len(t, e.Fields, 2)
	assert.Contains(t, e.Fields[0].Value, defaultReason)
}

func TestThreshold(t *testing.T) {
	f := newFixture(t, `{"enabled": true, "threshold": 2}`)

	assert.NotContains(t, fieldNames(f.run(t, "warn add user="+member)), "Threshold reached")
	assert.Contains(t, fieldNames(f.run(t, "warn add user="+member)), "Threshold reached")
}

func TestDirectMessage(t *testing.T) {
	f := newFixture(t, `{"enabled": true, "dmUser": true}`)

	f.run(t, "warn add user="+member+" reason=rude")
	assert.Equal(t, []string{member}, f.platform.dms)

	f.platform.dmFail = true
	e := f.run(t, "warn add user="+member+" reason=rude")
	assert.Equal(t, "User warned", e.Title)
	require.NotEmpty(t, e.Fields)
	assert.Equal(t, "Could not notify the user.", e.Fields[len(e.Fields)-1].Value)
}

func TestClear(t *testing.T) {
	f := newFixture(t, `{"enabled": true}`)

	assert.Equal(t, "No warnings", f.run(t, "warn clear user="+member).Title)

	f.run(t, "warn add user="+member)
	assert.Equal(t, "Warnings cleared", f.run(t, "warn clear user="+member).Title)
	assert.Equal(t, "No warnings", f.run(t, "warn list user="+member).Title)
}

func TestListTruncates(t *testing.T) {
	f := newFixture(t, `{"enabled": true}`)
	for i := 0; i < maxListed+2; i++ {
		f.run(t, "warn add user="+member)
	}

	e := f.run(t, "warn list user="+member)
	assert.Len(t, e.Fields, maxListed)
	require.NotNil(t, e.Footer)
	assert.Equal(t, "2 older warning(s) not shown", e.Footer.Text)
}

func TestInvalidOptions(t *testing.T) {
	tests := []struct {
		name  string
		entry string
	}{
		{"wrong type", `{"enabled": true, "threshold": "three"}`},
		{"negative threshold", `{"enabled": true, "threshold": -1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, avail, err := New(fakeConfig{"warn": tt.entry}, nil, &fakePlatform{}, logger.Nop())
			require.NoError(t, err)
			assert.Equal(t, module.StatusInvalid, avail.Status)
			assert.False(t, root.Enabled())
		})
	}
}

func TestOptionEditsApply(t *testing.T) {
	f := newFixture(t, `{"enabled": true}`)
	f.run(t, "warn add user="+member)

	f.cfg["warn"] = `{"enabled": true, "threshold": 2}`
	assert.Contains(t, fieldNames(f.run(t, "warn add user="+member)), "Threshold reached")
}

func TestRefreshKeepsInvalidDisabled(t *testing.T) {
	f := newFixture(t, `{"enabled": true, "threshold": -1}`)

	f.router.Refresh()
	_, ok := f.router.Resolve([]string{"warn", "list"})
	assert.False(t, ok)

	f.cfg["warn"] = `{"enabled": true, "threshold": 2}`
	f.router.Refresh()
	_, ok = f.router.Resolve([]string{"warn", "list"})
	assert.True(t, ok)

	f.cfg["warn"] = `{"enabled": true, "threshold": "two"}`
	f.router.Refresh()
	_, ok = f.router.Resolve([]string{"warn", "list"})
	assert.False(t, ok)
}
