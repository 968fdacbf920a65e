package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Lookups try every shard's state cache first and fall back to the REST API.

func (d *Discord) Guild(gid string) (*discordgo.Guild, error) {
	for _, s := range d.sessions {
		if g, err := s.State.Guild(gid); err == nil {
			return g, nil
		}
	}
	return d.Sess.Guild(gid)
}

func (d *Discord) Member(gid, uid string) (*discordgo.Member, error) {
	for _, s := range d.sessions {
		if m, err := s.State.Member(gid, uid); err == nil {
			return m, nil
		}
	}
	return d.Sess.GuildMember(gid, uid)
}

func (d *Discord) Channel(cid string) (*discordgo.Channel, error) {
	for _, s := range d.sessions {
		if ch, err := s.State.Channel(cid); err == nil {
			return ch, nil
		}
	}
	return d.Sess.Channel(cid)
}

func (d *Discord) User(uid string) (*discordgo.User, error) {
	for _, s := range d.sessions {
		for _, gid := range guildIDs(s.State) {
			if m, err := s.State.Member(gid, uid); err == nil && m.User != nil {
				return m.User, nil
			}
		}
	}
	return d.Sess.User(uid)
}

func (d *Discord) UserChannelPermissions(uid, cid string) (int64, error) {
	for _, s := range d.sessions {
		if p, err := s.State.UserChannelPermissions(uid, cid); err == nil {
			return p, nil
		}
	}
	return -1, discordgo.ErrStateNotFound
}

// GuildCount sums the guilds cached by every shard.
func (d *Discord) GuildCount() int {
	n := 0
	for _, s := range d.sessions {
		n += len(guildIDs(s.State))
	}
	return n
}

func guildIDs(st *discordgo.State) []string {
	st.RLock()
	defer st.RUnlock()
	ids := make([]string, 0, len(st.Guilds))
	for _, g := range st.Guilds {
		ids = append(ids, g.ID)
	}
	return ids
}

// SendDirect opens a DM channel with the user and sends msg there.
func (d *Discord) SendDirect(uid string, msg *discordgo.MessageSend) error {
	ch, err := d.Sess.UserChannelCreate(uid)
	if err != nil {
		return fmt.Errorf("open dm: %w", err)
	}
	_, err = d.Sess.ChannelMessageSendComplex(ch.ID, msg)
	return err
}
