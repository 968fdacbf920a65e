package warden

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/intrntsrfr/warden/logger"
	"github.com/intrntsrfr/warden/module"
)

func (b *Bot) listen(ctx context.Context, evtCh <-chan interface{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-evtCh:
			switch e := evt.(type) {
			case *discordgo.Ready:
				go b.readyHandler(e)
			case *discordgo.Disconnect:
				go b.disconnectHandler(e)
			case *discordgo.MessageCreate:
				go b.messageCreateHandler(ctx, e)
			case *discordgo.InteractionCreate:
				go b.interactionCreateHandler(ctx, e)
			}
		}
	}
}

// readyHandler fires once per shard. Slash commands are pushed until one
// push succeeds.
func (b *Bot) readyHandler(r *discordgo.Ready) {
	b.log.Info("logged in", zap.String("user", r.User.String()), zap.Int("guilds", len(r.Guilds)))

	b.commands.ready(r.User.ID)
	if err := b.disc.UpdateStatus(b.cfg.Config().Prefix + "help"); err != nil {
		b.log.Error("failed to update status", zap.Error(err))
	}
}

func (b *Bot) disconnectHandler(_ *discordgo.Disconnect) {
	b.log.LogEvent(logger.Event{
		Category:    logger.CategoryDiscord,
		Location:    "warden.disconnectHandler",
		Description: "disconnected from gateway",
	}, logger.VerbosityWarning)
}

func (b *Bot) messageCreateHandler(ctx context.Context, e *discordgo.MessageCreate) {
	m := e.Message
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	cfg := b.cfg.Config()
	selfID := ""
	if u := b.disc.Sess.State.User; u != nil {
		selfID = u.ID
	}
	input, ok := commandInput(m.Content, cfg.Prefix, selfID)
	if !ok {
		return
	}
	if !b.limiter.Allow(m.Author.ID) {
		b.log.Debug("rate limited", zap.String("userID", m.Author.ID))
		return
	}

	perms, err := b.disc.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		b.log.Debug("no permissions in state", zap.String("userID", m.Author.ID), zap.Error(err))
		perms = 0
	}
	if cfg.IsOwner(m.Author.ID) {
		perms |= discordgo.PermissionAdministrator
	}

	caller := module.Caller{
		UserID:      m.Author.ID,
		GuildID:     m.GuildID,
		ChannelID:   m.ChannelID,
		Permissions: perms,
	}
	reply := b.router.DispatchText(ctx, input, caller)
	b.logCommand("text", input, caller)
	if reply == nil {
		return
	}

	reply.Reference = m.Reference()
	reply.AllowedMentions = &discordgo.MessageAllowedMentions{}
	if _, err := b.disc.Sess.ChannelMessageSendComplex(m.ChannelID, reply); err != nil {
		b.log.Error("failed to send reply", zap.String("channelID", m.ChannelID), zap.Error(err))
	}
}

func (b *Bot) interactionCreateHandler(ctx context.Context, e *discordgo.InteractionCreate) {
	if e.Type != discordgo.InteractionApplicationCommand {
		return
	}

	caller := interactionCaller(e.Interaction)
	if cfg := b.cfg.Config(); cfg.IsOwner(caller.UserID) {
		caller.Permissions |= discordgo.PermissionAdministrator
	}

	var reply *discordgo.MessageSend
	path, opts := module.InteractionPath(e.ApplicationCommandData())
	if b.limiter.Allow(caller.UserID) {
		reply = b.router.DispatchPath(ctx, path, opts, caller)
		b.logCommand("slash", strings.Join(path, " "), caller)
	} else {
		reply = module.ErrorReply("Slow down", "You are using commands too quickly.")
	}

	err := b.disc.Sess.InteractionRespond(e.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: interactionData(reply),
	})
	if err != nil {
		b.log.Error("failed to respond to interaction", zap.String("id", e.ID), zap.Error(err))
	}
}

// commandInput strips the prefix or a leading mention of the bot from
// content. ok is false when the message is not meant for the bot.
func commandInput(content, prefix, selfID string) (input string, ok bool) {
	content = strings.TrimSpace(content)
	if selfID != "" {
		for _, mention := range []string{"<@" + selfID + ">", "<@!" + selfID + ">"} {
			if rest, found := strings.CutPrefix(content, mention); found {
				rest = strings.TrimSpace(rest)
				return rest, rest != ""
			}
		}
	}
	if prefix == "" {
		return "", false
	}
	rest, found := strings.CutPrefix(content, prefix)
	if !found {
		return "", false
	}
	rest = strings.TrimSpace(rest)
	return rest, rest != ""
}

func interactionCaller(i *discordgo.Interaction) module.Caller {
	c := module.Caller{
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
	}
	if i.Member != nil {
		c.Permissions = i.Member.Permissions
		if i.Member.User != nil {
			c.UserID = i.Member.User.ID
		}
	} else if i.User != nil {
		c.UserID = i.User.ID
	}
	return c
}

// interactionData converts a reply for an interaction response. A nil reply
// still has to acknowledge the interaction.
func interactionData(m *discordgo.MessageSend) *discordgo.InteractionResponseData {
	if m == nil {
		return &discordgo.InteractionResponseData{
			Content: "Done.",
			Flags:   discordgo.MessageFlagsEphemeral,
		}
	}
	return &discordgo.InteractionResponseData{
		Content:         m.Content,
		Embeds:          m.Embeds,
		Files:           m.Files,
		Components:      m.Components,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
}
