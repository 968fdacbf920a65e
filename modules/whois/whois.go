// Package whois shows what is known about a user.
package whois

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/meido/pkg/utils"
	"github.com/intrntsrfr/meido/pkg/utils/builders"

	"github.com/intrntsrfr/warden/module"
)

// rolesLimit keeps the roles field under the embed field value limit.
const rolesLimit = 760

type Platform interface {
	User(uid string) (*discordgo.User, error)
	Member(gid, uid string) (*discordgo.Member, error)
}

// New builds the whois leaf. Without a user option it describes the caller.
func New(cfg module.ConfigSource, platform Platform) (*module.Module, module.Availability) {
	run := func(ctx context.Context, req *module.Request) (*discordgo.MessageSend, error) {
		uid := req.Caller.UserID
		if req.HasOption("user") {
			uid = module.TrimUserID(req.Option("user"))
		}
		if !module.IsSnowflake(uid) {
			return module.ErrorReply("Invalid user", fmt.Sprintf("`%v` is not a user.", uid)), nil
		}

		user, err := platform.User(uid)
		if err != nil {
			return module.ErrorReply("Unknown user", fmt.Sprintf("Could not find user `%v`.", uid)), nil
		}

		var mem *discordgo.Member
		if req.Caller.GuildID != "" {
			mem, _ = platform.Member(req.Caller.GuildID, uid)
		}
		return module.EmbedReply(userEmbed(user, mem)), nil
	}

	return module.NewBuilder("whois").
		Help("Show information about a user").
		Aliases("userinfo").
		Option("user", "The user to look up", discordgo.ApplicationCommandOptionUser, false).
		Execute(run).
		Root(cfg)
}

func userEmbed(user *discordgo.User, mem *discordgo.Member) *discordgo.MessageEmbed {
	created := utils.IDToTimestamp(user.ID)
	embed := builders.NewEmbedBuilder().
		WithTitle(user.String()).
		WithThumbnail(user.AvatarURL("256")).
		WithColor(int(module.ColorBlue)).
		AddField("User", user.Mention(), true).
		AddField("ID", user.ID, true).
		AddField("Created", fmt.Sprintf("<t:%v:R>", created.Unix()), false)

	if user.Bot {
		embed.AddField("Bot", "Yes", true)
	}
	if mem == nil {
		embed.WithFooter("Not a member of this server", "")
		return embed.Build()
	}

	if !mem.JoinedAt.IsZero() {
		embed.AddField("Joined", fmt.Sprintf("<t:%v:R>", mem.JoinedAt.Unix()), false)
	}
	if mem.Nick != "" {
		embed.AddField("Nickname", mem.Nick, true)
	}
	embed.AddField("Roles", rolesField(mem.Roles), false)
	return embed.Build()
}

func rolesField(ids []string) string {
	if len(ids) == 0 {
		return "None"
	}
	var roles []string
	for _, r := range ids {
		roles = append(roles, fmt.Sprintf("<@&%v>", r))
	}

	var shown []string
	for _, r := range roles {
		if len(strings.Join(append(shown, r), ", ")) > rolesLimit {
			break
		}
		shown = append(shown, r)
	}

	field := strings.Join(shown, ", ")
	if len(shown) != len(roles) {
		field += fmt.Sprintf(" and %v more", len(roles)-len(shown))
	}
	return field
}
