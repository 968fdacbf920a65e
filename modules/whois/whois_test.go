package whois

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intrntsrfr/warden/logger"
	"github.com/intrntsrfr/warden/module"
)

type enabledConfig struct{}

func (enabledConfig) ModuleEnabled(string) (bool, bool)      { return true, true }
func (enabledConfig) DecodeModule(string, any) (bool, error) { return true, nil }

type fakePlatform struct {
	users   map[string]*discordgo.User
	members map[string]*discordgo.Member
}

func (p *fakePlatform) User(uid string) (*discordgo.User, error) {
	if u, ok := p.users[uid]; ok {
		return u, nil
	}
	return nil, errors.New("unknown user")
}

func (p *fakePlatform) Member(gid, uid string) (*discordgo.Member, error) {
	if m, ok := p.members[gid+"/"+uid]; ok {
		return m, nil
	}
	return nil, discordgo.ErrStateNotFound
}

const (
	guild  = "300000000000000003"
	caller = "100000000000000001"
	other  = "200000000000000002"
)

func newRouter(t *testing.T) *module.Router {
	t.Helper()
	p := &fakePlatform{
		users: map[string]*discordgo.User{
			caller: {ID: caller, Username: "mod"},
			other:  {ID: other, Username: "kate", Bot: true},
		},
		members: map[string]*discordgo.Member{
			guild + "/" + caller: {
				User:     &discordgo.User{ID: caller},
				Nick:     "boss",
				JoinedAt: time.Unix(1700000000, 0),
				Roles:    []string{"1", "2"},
			},
		},
	}
	root, avail := New(enabledConfig{}, p)
	r := module.NewRouter(enabledConfig{}, logger.Nop())
	require.NoError(t, r.Register(root, avail))
	return r
}

func fields(e *discordgo.MessageEmbed) map[string]string {
	out := make(map[string]string)
	for _, f := range e.Fields {
		out[f.Name] = f.Value
	}
	return out
}

func TestWhoisCaller(t *testing.T) {
	r := newRouter(t)
	reply := r.DispatchText(context.Background(), "whois", module.Caller{UserID: caller, GuildID: guild})
	require.Len(t, reply.Embeds, 1)

	f := fields(reply.Embeds[0])
	assert.Equal(t, caller, f["ID"])
	assert.Equal(t, "boss", f["Nickname"])
	assert.Equal(t, "<t:1700000000:R>", f["Joined"])
	assert.Equal(t, "<@&1>, <@&2>", f["Roles"])
	assert.NotContains(t, f, "Bot")
}

func TestWhoisOtherUser(t *testing.T) {
	r := newRouter(t)
	reply := r.DispatchText(context.Background(), "whois <@!"+other+">", module.Caller{UserID: caller, GuildID: guild})
	require.Len(t, reply.Embeds, 1)

	e := reply.Embeds[0]
	f := fields(e)
	assert.Equal(t, other, f["ID"])
	assert.Equal(t, "Yes", f["Bot"])
	assert.NotContains(t, f, "Roles")
	require.NotNil(t, e.Footer)
	assert.Equal(t, "Not a member of this server", e.Footer.Text)
}

func TestWhoisUnknownUser(t *testing.T) {
	r := newRouter(t)
	reply := r.DispatchText(context.Background(), "whois 400000000000000004", module.Caller{UserID: caller})
	require.Len(t, reply.Embeds, 1)
	assert.Equal(t, "Unknown user", reply.Embeds[0].Title)
}

func TestRolesField(t *testing.T) {
	many := make([]string, 100)
	for i := range many {
		many[i] = fmt.Sprintf("%018d", i)
	}

	tests := []struct {
		name  string
		roles []string
		check func(t *testing.T, got string)
	}{
		{"none", nil, func(t *testing.T, got string) { assert.Equal(t, "None", got) }},
		{"few", []string{"1"}, func(t *testing.T, got string) { assert.Equal(t, "<@&1>", got) }},
		{"many", many, func(t *testing.T, got string) {
			assert.True(t, strings.HasSuffix(got, " more"))
			assert.LessOrEqual(t, len(strings.SplitN(got, " and ", 2)[0]), rolesLimit)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, rolesField(tt.roles))
		})
	}
}
