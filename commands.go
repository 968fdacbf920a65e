package warden

import (
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/intrntsrfr/warden/logger"
)

// commandSync keeps the global slash commands in line with the reachable
// roots. A failed overwrite is retried on the next Ready or toggle.
type commandSync struct {
	mu     sync.Mutex
	appID  string
	synced bool

	commands  func() []*discordgo.ApplicationCommand
	overwrite func(appID string, cmds []*discordgo.ApplicationCommand) error
	log       *logger.Logger
}

// ready records the application ID and pushes the commands unless an
// earlier push succeeded.
func (c *commandSync) ready(appID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appID = appID
	if c.synced {
		return
	}
	c.push()
}

// changed pushes the commands again after roots were toggled. Before the
// first Ready there is nothing to push to.
func (c *commandSync) changed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.appID == "" {
		return
	}
	c.synced = false
	c.push()
}

func (c *commandSync) push() {
	cmds := c.commands()
	if err := c.overwrite(c.appID, cmds); err != nil {
		c.log.Error("failed to register slash commands", zap.Error(err))
		return
	}
	c.synced = true
	c.log.Info("registered slash commands", zap.Int("count", len(cmds)))
}
