package discord

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/intrntsrfr/warden/logger"
)

// Discord fans the events of every shard session into a single channel.
type Discord struct {
	token    string
	Sess     *discordgo.Session
	sessions []*discordgo.Session
	log      *logger.Logger

	Events chan interface{}
}

// NewDiscord creates one session per shard. A shard count of zero or less
// asks Discord for the recommended count.
func NewDiscord(token string, shards int, log *logger.Logger) (*Discord, error) {
	d := &Discord{
		token:  token,
		log:    log.Named("discord"),
		Events: make(chan interface{}, 256),
	}

	if shards <= 0 {
		n, err := recommendedShards(d.token)
		if err != nil {
			return nil, fmt.Errorf("recommended shards: %w", err)
		}
		shards = n
	}

	for i := 0; i < shards; i++ {
		s, err := discordgo.New("Bot " + d.token)
		if err != nil {
			return nil, err
		}

		s.State.TrackVoice = false
		s.State.TrackPresences = false
		s.ShardCount = shards
		s.ShardID = i
		s.Identify.Intents = discordgo.MakeIntent(discordgo.IntentsAllWithoutPrivileged | discordgo.IntentsGuildMembers | discordgo.IntentMessageContent)
		s.AddHandler(onEvent(d.Events))

		d.sessions = append(d.sessions, s)
		d.log.Debug("created session", zap.Int("shard", i), zap.Int("shards", shards))
	}
	d.Sess = d.sessions[0]

	return d, nil
}

func onEvent(e chan interface{}) func(s *discordgo.Session, i interface{}) {
	return func(s *discordgo.Session, i interface{}) {
		e <- i
	}
}

func (d *Discord) AddHandler(h interface{}) {
	for _, s := range d.sessions {
		s.AddHandler(h)
	}
}

// Open opens the Discord sessions.
func (d *Discord) Open() error {
	for _, sess := range d.sessions {
		if err := sess.Open(); err != nil {
			return fmt.Errorf("open shard %v: %w", sess.ShardID, err)
		}
	}
	return nil
}

// UpdateStatus sets the playing status on every connected shard. Shards
// that are not connected yet are skipped.
func (d *Discord) UpdateStatus(name string) error {
	var errs []error
	for _, sess := range d.sessions {
		err := sess.UpdateGameStatus(0, name)
		if err != nil && !errors.Is(err, discordgo.ErrWSNotFound) {
			errs = append(errs, fmt.Errorf("shard %v: %w", sess.ShardID, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes the Discord sessions
func (d *Discord) Close() {
	for _, sess := range d.sessions {
		if err := sess.Close(); err != nil {
			d.log.Error("failed to close discord session", zap.Int("shard", sess.ShardID), zap.Error(err))
		}
	}
}

func recommendedShards(token string) (int, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return -1, err
	}
	resp, err := s.GatewayBot()
	if err != nil {
		return -1, err
	}
	if resp.Shards < 1 {
		return 1, nil
	}
	return resp.Shards, nil
}
