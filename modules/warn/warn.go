// Package warn records formal warnings against users.
package warn

import (
	"context"
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
	Collection = "warnings"
	DateLayout = "2006-01-02 15:04:05 MST"

	defaultReason = "No reason given"
	maxListed     = 10
)

type Warning struct {
	Reason   string `json:"reason"`
	IssuedBy string `json:"issuedBy"`
	Date     string `json:"date"`
}

type Record struct {
	Warnings []Warning `json:"warnings"`
}

// Options is the entry under modules.warn.
type Options struct {
	Enabled bool `json:"enabled"`
	// DMUser sends the warned user a direct message.
	DMUser bool `json:"dmUser"`
	// Threshold flags a user once they hold this many warnings. Zero turns
	// it off.
	Threshold int `json:"threshold"`
}

func (o Options) validate() error {
	if o.Threshold < 0 {
		return fmt.Errorf("threshold must not be negative, got %d", o.Threshold)
	}
	return nil
}

type Store interface {
	FindOne(ctx context.Context, id string) (*Record, error)
	UpdateOne(ctx context.Context, id string, update func(*Record) error, upsert bool) error
	DeleteOne(ctx context.Context, id string) error
}

type Platform interface {
	User(uid string) (*discordgo.User, error)
	SendDirect(uid string, msg *discordgo.MessageSend) error
}

var now = time.Now

type handler struct {
	cfg      module.ConfigSource
	store    Store
	platform Platform
	log      *logger.Logger
	opts     Options
}

// New builds the warn root. Options that fail to decode leave the root
// disabled with an Invalid availability, and keep it disabled on refresh.
func New(cfg module.ConfigSource, store Store, platform Platform, log *logger.Logger) (*module.Module, module.Availability, error) {
	h := &handler{
		cfg:      cfg,
		store:    store,
		platform: platform,
		log:      log.Named("warn"),
	}

	root, avail := module.NewBuilder("warn").
		Help("Issue and review warnings").
		Aliases("warnings").
		Permissions(discordgo.PermissionModerateMembers).
		Check(func() error {
			_, err := h.options()
			return err
		}).
		Root(cfg)

	if avail.Status != module.StatusMissing && avail.Status != module.StatusInvalid {
		h.opts, _ = h.options()
	}

	subs := []*module.Module{
		module.NewBuilder("add").
			Help("Warn a user").
			Option("user", "The user to warn", discordgo.ApplicationCommandOptionUser, true).
			Option("reason", "Why the user is warned", discordgo.ApplicationCommandOptionString, false).
			Execute(h.add).
			Sub(),
		module.NewBuilder("list").
			Help("List the warnings of a user").
			Option("user", "The user to look up", discordgo.ApplicationCommandOptionUser, true).
			Execute(h.list).
			Sub(),
		module.NewBuilder("clear").
			Help("Remove every warning of a user").
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

func (h *handler) options() (Options, error) {
	var o Options
	if _, err := h.cfg.DecodeModule("warn", &o); err != nil {
		return Options{}, err
	}
	if err := o.validate(); err != nil {
		return Options{}, err
	}
	return o, nil
}

// current re-reads the options so config edits apply without a restart.
func (h *handler) current() Options {
	o, err := h.options()
	if err != nil {
		h.log.Warn("keeping previous warn options", zap.Error(err))
		return h.opts
	}
	return o
}

func target(req *module.Request) (string, *discordgo.MessageSend) {
	uid := module.TrimUserID(req.Option("user"))
	if !module.IsSnowflake(uid) {
		return "", module.ErrorReply("Invalid user", fmt.Sprintf("`%v` is not a user.", req.Option("user")))
	}
	return uid, nil
}

func (h *handler) add(ctx context.Context, req *module.Request) (*discordgo.MessageSend, error) {
	uid, reply := target(req)
	if reply != nil {
		return reply, nil
	}
	user, err := h.platform.User(uid)
	if err != nil {
		return module.ErrorReply("Unknown user", fmt.Sprintf("Could not find user `%v`.", uid)), nil
	}

	reason := req.Option("reason")
	if reason == "" {
		reason = defaultReason
	}
	w := Warning{
		Reason:   reason,
		IssuedBy: req.Caller.UserID,
		Date:     now().UTC().Format(DateLayout),
	}

	count := 0
	err = h.store.UpdateOne(ctx, uid, func(r *Record) error {
		r.Warnings = append(r.Warnings, w)
		count = len(r.Warnings)
		return nil
	}, true)
	if err != nil {
		return nil, fmt.Errorf("add warning: %w", err)
	}
	h.log.Info("user warned", zap.String("userID", uid), zap.String("issuedBy", w.IssuedBy), zap.Int("count", count))

	opts := h.current()
	embed := builders.NewEmbedBuilder().
		WithTitle("User warned").
		WithColor(int(module.ColorOrange)).
		AddField("User", fmt.Sprintf("%v (%v)", user.Username, user.ID), false).
		AddField("Reason", w.Reason, false).
		AddField("Warnings", fmt.Sprint(count), true)

	if opts.Threshold > 0 && count >= opts.Threshold {
		embed.AddField("Threshold reached", fmt.Sprintf("%v has %v of %v warnings.", user.Username, count, opts.Threshold), false)
	}

	if opts.DMUser {
		dm := builders.NewEmbedBuilder().
			WithTitle("You have been warned").
			WithColor(int(module.ColorOrange)).
			AddField("Reason", w.Reason, false).
			WithFooter(w.Date, "")
		if err := h.platform.SendDirect(uid, module.EmbedReply(dm.Build())); err != nil {
			h.log.Warn("could not dm warned user", zap.String("userID", uid), zap.Error(err))
			embed.AddField("Direct message", "Could not notify the user.", false)
		} else {
			embed.AddField("Direct message", "The user was notified.", false)
		}
	}

	return module.EmbedReply(embed.Build()), nil
}

func (h *handler) list(ctx context.Context, req *module.Request) (*discordgo.MessageSend, error) {
	uid, reply := target(req)
	if reply != nil {
		return reply, nil
	}
	rec, err := h.store.FindOne(ctx, uid)
	if errors.Is(err, database.ErrNotFound) || (err == nil && len(rec.Warnings) == 0) {
		embed := builders.NewEmbedBuilder().
			WithTitle("No warnings").
			WithDescription(fmt.Sprintf("<@%v> has no warnings.", uid)).
			WithColor(int(module.ColorBlue))
		return module.EmbedReply(embed.Build()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("list warnings: %w", err)
	}

	embed := builders.NewEmbedBuilder().
		WithTitle("Warnings").
		WithDescription(fmt.Sprintf("<@%v> has %v warning(s).", uid, len(rec.Warnings))).
		WithColor(int(module.ColorOrange))

	// newest first
	shown := 0
	for i := len(rec.Warnings) - 1; i >= 0 && shown < maxListed; i-- {
		w := rec.Warnings[i]
		embed.AddField(fmt.Sprintf("#%v - %v", i+1, w.Date), fmt.Sprintf("%v\n*by <@%v>*", w.Reason, w.IssuedBy), false)
		shown++
	}
	if hidden := len(rec.Warnings) - shown; hidden > 0 {
		embed.WithFooter(fmt.Sprintf("%v older warning(s) not shown", hidden), "")
	}
	return module.EmbedReply(embed.Build()), nil
}

func (h *handler) clear(ctx context.Context, req *module.Request) (*discordgo.MessageSend, error) {
	uid, reply := target(req)
	if reply != nil {
		return reply, nil
	}
	err := h.store.DeleteOne(ctx, uid)
	if errors.Is(err, database.ErrNotFound) {
		return module.ErrorReply("No warnings", fmt.Sprintf("<@%v> has no warnings to clear.", uid)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("clear warnings: %w", err)
	}

	h.log.Info("warnings cleared", zap.String("userID", uid), zap.String("clearedBy", req.Caller.UserID))
	embed := builders.NewEmbedBuilder().
		WithTitle("Warnings cleared").
		WithDescription(fmt.Sprintf("Removed every warning of <@%v>.", uid)).
		WithColor(int(module.ColorGreen))
	return module.EmbedReply(embed.Build()), nil
}
