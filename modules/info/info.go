// Package info reports on the running bot.
package info

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/meido/pkg/utils/builders"

	"github.com/intrntsrfr/warden/module"
)

type Platform interface {
	GuildCount() int
}

func New(cfg module.ConfigSource, platform Platform, startTime time.Time) (*module.Module, module.Availability) {
	run := func(ctx context.Context, req *module.Request) (*discordgo.MessageSend, error) {
		embed := builders.NewEmbedBuilder().
			WithTitle("Info").
			WithOkColor().
			AddField("Golang version", runtime.Version(), false).
			AddField("Running since", fmt.Sprintf("<t:%v:R>", startTime.Unix()), false).
			AddField("Total guilds", fmt.Sprintf("%v", platform.GuildCount()), false)
		return module.EmbedReply(embed.Build()), nil
	}

	return module.NewBuilder("info").
		Help("Get information about the bot").
		Execute(run).
		Root(cfg)
}
