package warden

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/intrntsrfr/warden/config"
	"github.com/intrntsrfr/warden/database"
	"github.com/intrntsrfr/warden/discord"
	"github.com/intrntsrfr/warden/logger"
	"github.com/intrntsrfr/warden/module"
	"github.com/intrntsrfr/warden/modules/info"
	"github.com/intrntsrfr/warden/modules/notes"
	"github.com/intrntsrfr/warden/modules/settings"
	"github.com/intrntsrfr/warden/modules/warn"
	"github.com/intrntsrfr/warden/modules/whois"
)

const limiterIdle = 10 * time.Minute

type Bot struct {
	cfg       *config.Store
	db        database.Backend
	disc      *discord.Discord
	router    *module.Router
	limiter   *rateLimiter
	log       *logger.Logger
	startTime time.Time
	commands  *commandSync
}

type Config struct {
	Store *config.Store
	DB    database.Backend
	Log   *logger.Logger
}

func NewBot(c *Config) (*Bot, error) {
	cfg := c.Store.Config()
	if cfg.Token == "" {
		return nil, fmt.Errorf("no token set in %v or WARDEN_TOKEN", c.Store.Path())
	}

	b := &Bot{
		cfg:       c.Store,
		db:        c.DB,
		log:       c.Log.Named("bot"),
		router:    module.NewRouter(c.Store, c.Log),
		limiter:   newRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst),
		startTime: time.Now(),
	}

	disc, err := discord.NewDiscord(cfg.Token, cfg.Shards, c.Log)
	if err != nil {
		return nil, err
	}
	b.disc = disc

	b.commands = &commandSync{
		commands: b.router.ApplicationCommands,
		overwrite: func(appID string, cmds []*discordgo.ApplicationCommand) error {
			_, err := b.disc.Sess.ApplicationCommandBulkOverwrite(appID, "", cmds)
			return err
		},
		log: b.log,
	}
	b.router.OnToggle(func() { go b.commands.changed() })

	return b, nil
}

// Run registers the modules and opens the shard sessions. Events are handled
// until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.registerModules(); err != nil {
		return err
	}
	go b.listen(ctx, b.disc.Events)
	go b.pruneLimiter(ctx)

	return b.disc.Open()
}

func (b *Bot) Close() {
	b.disc.Close()
}

type registration struct {
	mod   *module.Module
	avail module.Availability
	err   error
}

func (b *Bot) registerModules() error {
	notesRoot, notesAvail, notesErr := notes.New(b.cfg,
		database.NewCollection[notes.Record](b.db, notes.Collection), b.disc, b.log)
	warnRoot, warnAvail, warnErr := warn.New(b.cfg,
		database.NewCollection[warn.Record](b.db, warn.Collection), b.disc, b.log)
	whoisRoot, whoisAvail := whois.New(b.cfg, b.disc)
	infoRoot, infoAvail := info.New(b.cfg, b.disc, b.startTime)
	settingsRoot, settingsAvail, settingsErr := settings.New(b.cfg, b.cfg, b.router, b.log)

	regs := []registration{
		{notesRoot, notesAvail, notesErr},
		{warnRoot, warnAvail, warnErr},
		{whoisRoot, whoisAvail, nil},
		{infoRoot, infoAvail, nil},
		{settingsRoot, settingsAvail, settingsErr},
	}
	for _, r := range regs {
		if r.err != nil {
			return fmt.Errorf("build module: %w", r.err)
		}
		if err := b.router.Register(r.mod, r.avail); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) pruneLimiter(ctx context.Context) {
	t := time.NewTicker(limiterIdle)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := b.limiter.prune(limiterIdle); n > 0 {
				b.log.Debug("pruned rate limiters", zap.Int("count", n))
			}
		}
	}
}
