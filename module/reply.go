package module

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/meido/pkg/utils/builders"
)

type Color int

const (
	ColorRed    Color = 0xff0000
	ColorGreen  Color = 0x00ff00
	ColorBlue   Color = 0x61d1ed
	ColorWhite  Color = 0xffffff
	ColorOrange Color = 0xf57f54
)

// EmbedReply wraps a single embed into a message.
func EmbedReply(embed *discordgo.MessageEmbed) *discordgo.MessageSend {
	return &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}
}

// ErrorReply is the reply for user errors: unknown targets, missing options
// and the like.
func ErrorReply(title, description string) *discordgo.MessageSend {
	embed := builders.NewEmbedBuilder().
		WithTitle(title).
		WithDescription(description).
		WithColor(int(ColorRed))
	return EmbedReply(embed.Build())
}

// FailureReply is the reply for a collaborator that failed. It names the
// failure so users can report it.
func FailureReply(err error) *discordgo.MessageSend {
	return ErrorReply("Something went wrong", fmt.Sprintf("%v: %v", ErrorName(err), err))
}

// ErrorName returns the type name of the innermost error in the chain.
func ErrorName(err error) string {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) {
		if rest.Message != nil && rest.Message.Code != 0 {
			return fmt.Sprintf("RESTError(%v)", rest.Message.Code)
		}
		return "RESTError"
	}

	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	if err == nil {
		return "Error"
	}
	name := strings.TrimPrefix(reflect.TypeOf(err).String(), "*")
	if name == "errors.errorString" {
		return "Error"
	}
	return name
}

func genericFailureReply() *discordgo.MessageSend {
	return ErrorReply("Something went wrong", "The command failed unexpectedly. It has been logged.")
}

// helpReply lists the reachable children of m.
func helpReply(m *Module) *discordgo.MessageSend {
	embed := builders.NewEmbedBuilder().
		WithTitle(strings.Join(m.Path(), " ")).
		WithDescription(m.help).
		WithColor(int(ColorBlue))

	for _, c := range m.submodules {
		if !c.enabled {
			continue
		}
		embed.AddField(helpFieldName(c), helpFieldValue(c), false)
	}
	return EmbedReply(embed.Build())
}

// rootHelpReply lists the reachable roots.
func rootHelpReply(roots []*Module) *discordgo.MessageSend {
	embed := builders.NewEmbedBuilder().
		WithTitle("Commands").
		WithDescription("Use `help` after a command to see its subcommands.").
		WithColor(int(ColorBlue))

	for _, r := range roots {
		if !r.enabled {
			continue
		}
		embed.AddField(helpFieldName(r), helpFieldValue(r), false)
	}
	return EmbedReply(embed.Build())
}

func helpFieldName(m *Module) string {
	if len(m.aliases) == 0 {
		return m.command
	}
	return fmt.Sprintf("%v (%v)", m.command, strings.Join(m.aliases, ", "))
}

func helpFieldValue(m *Module) string {
	help := m.help
	if help == "" {
		help = "No description"
	}
	if !m.HasSubmodules() && len(m.options) > 0 {
		help += fmt.Sprintf("\n`%v`", m.Usage())
	}
	return help
}
