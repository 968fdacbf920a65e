// Package notes keeps moderator notes on users.
package notes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/meido/pkg/utils/builders"
	"go.uber.org/zap"

	"github.com/intrntsrfr/warden/database"
	"github.com/intrntsrfr/warden/logger"
	"github.com/intrntsrfr/warden/module"
)

const (
	Collection = "notes"
	DateLayout = "2006-01-02 15:04:05 MST"
)

type Note struct {
	Contents string `json:"contents"`
	AddedBy  string `json:"addedBy"`
	Date     string `json:"date"`
}

// Record holds every note on one user, oldest first.
type Record struct {
	Notes []Note `json:"notes"`
}

// Store is satisfied by *database.Collection[Record].
type Store interface {
	FindOne(ctx context.Context, id string) (*Record, error)
	UpdateOne(ctx context.Context, id string, update func(*Record) error, upsert bool) error
	DeleteOne(ctx context.Context, id string) error
}

type Users interface {
	User(uid string) (*discordgo.User, error)
}

var now = time.Now

type handler struct {
	store Store
	users Users
	log   *logger.Logger
}

// New builds the notes root with its add, get and clear subcommands.
func New(cfg module.ConfigSource, store Store, users Users, log *logger.Logger) (*module.Module, module.Availability, error) {
	h := &handler{
		store: store,
		users: users,
		log:   log.Named("notes"),
	}

	root, avail := module.NewBuilder("notes").
		Help("Keep moderator notes on users").
		Permissions(discordgo.PermissionModerateMembers).
		Root(cfg)

	subs := []*module.Module{
		module.NewBuilder("add").
			Help("Add a note to a user").
			Option("user", "The user to note", discordgo.ApplicationCommandOptionUser, true).
			Option("note", "The note text", discordgo.ApplicationCommandOptionString, true).
			Execute(h.add).
			Sub(),
		module.NewBuilder("get").
			Help("Show the notes on a user").
			Aliases("show").
			Option("user", "The user to look up", discordgo.ApplicationCommandOptionUser, true).
			Execute(h.get).
			Sub(),
		module.NewBuilder("clear").
			Help("Remove every note on a user").
			Option("user", "The user to clear", discordgo.ApplicationCommandOptionUser, true).
			Execute(h.clear).
			Sub(),
	}
	for _, s := range subs {
		if err := root.RegisterSubmodule(s); err != nil {
			return nil, avail, err
		}
	}
	return root, avail, nil
}

func (h *handler) target(req *module.Request) (string, *discordgo.MessageSend) {
	uid := module.TrimUserID(req.Option("user"))
	if !module.IsSnowflake(uid) {
		return "", module.ErrorReply("Invalid user", fmt.Sprintf("`%v` is not a user.", req.Option("user")))
	}
	return uid, nil
}

func (h *handler) add(ctx context.Context, req *module.Request) (*discordgo.MessageSend, error) {
	uid, reply := h.target(req)
	if reply != nil {
		return reply, nil
	}
	user, err := h.users.User(uid)
	if err != nil {
		h.log.Debug("user lookup failed", zap.String("userID", uid), zap.Error(err))
		return module.ErrorReply("Unknown user", fmt.Sprintf("Could not find user `%v`.", uid)), nil
	}

	note := Note{
		Contents: req.Option("note"),
		AddedBy:  req.Caller.UserID,
		Date:     now().UTC().Format(DateLayout),
	}
	err = h.store.UpdateOne(ctx, uid, func(r *Record) error {
		r.Notes = append(r.Notes, note)
		return nil
	}, true)
	if err != nil {
		return nil, fmt.Errorf("add note: %w", err)
	}

	h.log.Info("note added", zap.String("userID", uid), zap.String("addedBy", note.AddedBy))
	embed := builders.NewEmbedBuilder().
		WithTitle("Note added").
		WithColor(int(module.ColorGreen)).
		AddField("User", fmt.Sprintf("%v (%v)", user.Username, user.ID), false).
		AddField("Note", note.Contents, false)
	return module.EmbedReply(embed.Build()), nil
}

func (h *handler) get(ctx context.Context, req *module.Request) (*discordgo.MessageSend, error) {
	uid, reply := h.target(req)
	if reply != nil {
		return reply, nil
	}
	rec, err := h.store.FindOne(ctx, uid)
	if errors.Is(err, database.ErrNotFound) || (err == nil && len(rec.Notes) == 0) {
		embed := builders.NewEmbedBuilder().
			WithTitle("No notes").
			WithDescription(fmt.Sprintf("<@%v> has no notes.", uid)).
			WithColor(int(module.ColorBlue))
		return module.EmbedReply(embed.Build()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notes: %w", err)
	}

	body, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, err
	}

	last := rec.Notes[len(rec.Notes)-1]
	embed := builders.NewEmbedBuilder().
		WithTitle("Notes").
		WithDescription(fmt.Sprintf("<@%v> has %v note(s). The full list is attached.", uid, len(rec.Notes))).
		WithColor(int(module.ColorBlue)).
		AddField("Latest", fmt.Sprintf("%v\n*by <@%v> at %v*", last.Contents, last.AddedBy, last.Date), false)

	msg := module.EmbedReply(embed.Build())
	msg.Files = []*discordgo.File{{
		Name:        fmt.Sprintf("notes_%v.json", uid),
		ContentType: "application/json",
		Reader:      bytes.NewReader(body),
	}}
	return msg, nil
}

func (h *handler) clear(ctx context.Context, req *module.Request) (*discordgo.MessageSend, error) {
	uid, reply := h.target(req)
	if reply != nil {
		return reply, nil
	}
	if _, err := h.store.FindOne(ctx, uid); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return module.ErrorReply("No notes", fmt.Sprintf("<@%v> has no notes to clear.", uid)), nil
		}
		return nil, fmt.Errorf("clear notes: %w", err)
	}
	if err := h.store.DeleteOne(ctx, uid); err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("clear notes: %w", err)
	}

	h.log.Info("notes cleared", zap.String("userID", uid), zap.String("clearedBy", req.Caller.UserID))
	embed := builders.NewEmbedBuilder().
		WithTitle("Notes cleared").
		WithDescription(fmt.Sprintf("Removed every note on <@%v>.", uid)).
		WithColor(int(module.ColorGreen))
	return module.EmbedReply(embed.Build()), nil
}
