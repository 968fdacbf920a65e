package warden

import (
	"go.uber.org/zap"

	"github.com/intrntsrfr/warden/logger"
	"github.com/intrntsrfr/warden/module"
)

func (b *Bot) logCommand(kind, input string, caller module.Caller) {
	b.log.LogEvent(logger.Event{
		Category:    logger.CategoryCommand,
		Location:    kind,
		Description: input,
	}, logger.VerbosityInfo,
		zap.String("userID", caller.UserID),
		zap.String("guildID", caller.GuildID),
		zap.String("channelID", caller.ChannelID),
	)
}
