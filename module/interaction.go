package module

import (
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
)

const maxDescription = 100

// InteractionPath flattens slash command data into the command path and the
// option values, so interactions resolve through the same tree as text.
func InteractionPath(data discordgo.ApplicationCommandInteractionData) ([]string, map[string]string) {
	path := []string{data.Name}
	opts := make(map[string]string)

	options := data.Options
	for len(options) == 1 &&
		(options[0].Type == discordgo.ApplicationCommandOptionSubCommand ||
			options[0].Type == discordgo.ApplicationCommandOptionSubCommandGroup) {
		path = append(path, options[0].Name)
		options = options[0].Options
	}

	for _, o := range options {
		opts[o.Name] = optionValue(o)
	}
	return path, opts
}

func optionValue(o *discordgo.ApplicationCommandInteractionDataOption) string {
	switch o.Type {
	case discordgo.ApplicationCommandOptionString:
		return o.StringValue()
	case discordgo.ApplicationCommandOptionInteger:
		return strconv.FormatInt(o.IntValue(), 10)
	case discordgo.ApplicationCommandOptionBoolean:
		return strconv.FormatBool(o.BoolValue())
	default:
		// users, channels and roles arrive as id strings
		return fmt.Sprint(o.Value)
	}
}

// ApplicationCommands describes every reachable root as a slash command.
// Discord allows two levels below a command; deeper modules are text-only.
func (r *Router) ApplicationCommands() []*discordgo.ApplicationCommand {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dm := false
	var cmds []*discordgo.ApplicationCommand
	for _, m := range r.roots {
		if !m.enabled {
			continue
		}
		cmd := &discordgo.ApplicationCommand{
			Type:         discordgo.ChatApplicationCommand,
			Name:         m.command,
			Description:  description(m),
			DMPermission: &dm,
		}
		if perms := m.permissions; perms != 0 {
			cmd.DefaultMemberPermissions = &perms
		}
		if m.HasSubmodules() {
			cmd.Options = subcommandOptions(m, 0)
		} else {
			cmd.Options = leafOptions(m)
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

func subcommandOptions(m *Module, depth int) []*discordgo.ApplicationCommandOption {
	var out []*discordgo.ApplicationCommandOption
	for _, c := range m.submodules {
		if !c.enabled {
			continue
		}
		opt := &discordgo.ApplicationCommandOption{
			Name:        c.command,
			Description: description(c),
		}
		switch {
		case !c.HasSubmodules():
			opt.Type = discordgo.ApplicationCommandOptionSubCommand
			opt.Options = leafOptions(c)
		case depth == 0:
			opt.Type = discordgo.ApplicationCommandOptionSubCommandGroup
			opt.Options = subcommandOptions(c, depth+1)
		default:
			continue
		}
		out = append(out, opt)
	}
	return out
}

func leafOptions(m *Module) []*discordgo.ApplicationCommandOption {
	var out []*discordgo.ApplicationCommandOption
	// required options must come first
	for _, required := range []bool{true, false} {
		for _, o := range m.options {
			if o.Required != required {
				continue
			}
			typ := o.Type
			if typ == 0 {
				typ = discordgo.ApplicationCommandOptionString
			}
			out = append(out, &discordgo.ApplicationCommandOption{
				Type:        typ,
				Name:        o.Name,
				Description: truncate(o.Description, "No description"),
				Required:    o.Required,
			})
		}
	}
	return out
}

func description(m *Module) string {
	return truncate(m.help, "No description")
}

func truncate(s, fallback string) string {
	if s == "" {
		return fallback
	}
	r := []rune(s)
	if len(r) > maxDescription {
		return string(r[:maxDescription-3]) + "..."
	}
	return s
}
