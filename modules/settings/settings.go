// Package settings exposes the config file to server administrators.
package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/meido/pkg/utils/builders"
	"go.uber.org/zap"

	"github.com/intrntsrfr/warden/config"
	"github.com/intrntsrfr/warden/logger"
	"github.com/intrntsrfr/warden/module"
)

// maxValueLen leaves room for the code fence inside an embed description.
const maxValueLen = 4000

// Editor is satisfied by *config.Store.
type Editor interface {
	Lookup(path []string) (json.RawMessage, error)
	EditOption(path []string, value any) error
}

// Refresher re-reads which modules are enabled after an edit.
type Refresher interface {
	Refresh()
}

// protected roots are never shown or edited from chat.
var protected = map[string]bool{
	"token":    true,
	"database": true,
	"ownerids": true,
}

type handler struct {
	editor  Editor
	refresh Refresher
	log     *logger.Logger
}

func New(cfg module.ConfigSource, editor Editor, refresh Refresher, log *logger.Logger) (*module.Module, module.Availability, error) {
	h := &handler{
		editor:  editor,
		refresh: refresh,
		log:     log.Named("settings"),
	}

	root, avail := module.NewBuilder("config").
		Help("View or change bot settings").
		Aliases("settings").
		ConfigKey("settings").
		Permissions(discordgo.PermissionAdministrator).
		Root(cfg)

	subs := []*module.Module{
		module.NewBuilder("get").
			Help("Show a setting").
			Aliases("view").
			Option("path", "Dotted path such as modules.warn.threshold", discordgo.ApplicationCommandOptionString, true).
			Execute(h.get).
			Sub(),
		module.NewBuilder("set").
			Help("Change a setting").
			Option("path", "Dotted path such as modules.warn.threshold", discordgo.ApplicationCommandOptionString, true).
			Option("value", "New value as JSON, bare text is taken as a string", discordgo.ApplicationCommandOptionString, true).
			Execute(h.set).
			Sub(),
	}
	for _, s := range subs {
		if err := root.RegisterSubmodule(s); err != nil {
			return nil, avail, err
		}
	}
	return root, avail, nil
}

func parsePath(raw string) ([]string, *discordgo.MessageSend) {
	path, err := config.ParsePath(raw)
	if err != nil {
		return nil, module.ErrorReply("Invalid path", err.Error())
	}
	if protected[strings.ToLower(path[0])] {
		return nil, module.ErrorReply("Protected setting", fmt.Sprintf("`%v` cannot be accessed from chat.", path[0]))
	}
	return path, nil
}

func (h *handler) get(ctx context.Context, req *module.Request) (*discordgo.MessageSend, error) {
	path, reply := parsePath(req.Option("path"))
	if reply != nil {
		return reply, nil
	}
	raw, err := h.editor.Lookup(path)
	if errors.Is(err, config.ErrPathNotFound) {
		return module.ErrorReply("Unknown setting", fmt.Sprintf("`%v` does not exist.", strings.Join(path, "."))), nil
	}
	if err != nil {
		return nil, err
	}
	loc := strings.Join(path, ".")
	return module.EmbedReply(valueEmbed(loc, raw, module.ColorBlue)), nil
}

func (h *handler) set(ctx context.Context, req *module.Request) (*discordgo.MessageSend, error) {
	path, reply := parsePath(req.Option("path"))
	if reply != nil {
		return reply, nil
	}
	loc := strings.Join(path, ".")

	err := h.editor.EditOption(path, config.ParseValue(req.Option("value")))
	if errors.Is(err, config.ErrPathNotFound) {
		return module.ErrorReply("Unknown setting", fmt.Sprintf("`%v` does not exist.", loc)), nil
	}
	if err != nil {
		h.log.Warn("setting rejected", zap.String("path", loc), zap.Error(err))
		return module.ErrorReply("Setting not changed", err.Error()), nil
	}
	h.refresh.Refresh()
	h.log.Info("setting changed", zap.String("path", loc), zap.String("userID", req.Caller.UserID))

	raw, err := h.editor.Lookup(path)
	if err != nil {
		return nil, err
	}
	return module.EmbedReply(valueEmbed("Updated "+loc, raw, module.ColorGreen)), nil
}

func valueEmbed(title string, raw json.RawMessage, color module.Color) *discordgo.MessageEmbed {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		buf.Reset()
		buf.Write(raw)
	}
	body := buf.String()
	if r := []rune(body); len(r) > maxValueLen {
		body = string(r[:maxValueLen]) + "\n..."
	}
	return builders.NewEmbedBuilder().
		WithTitle(title).
		WithColor(int(color)).
		WithDescription(fmt.Sprintf("```json\n%v\n```", body)).
		Build()
}
