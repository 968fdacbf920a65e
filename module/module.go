package module

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

var (
	ErrDuplicate         = errors.New("duplicate command")
	ErrAlreadyRegistered = errors.New("module already has a parent")
)

// ExecuteFunc runs a leaf command. A nil reply means there is nothing to
// send back.
type ExecuteFunc func(ctx context.Context, req *Request) (*discordgo.MessageSend, error)

// ConfigSource is the part of the configuration a module tree reads.
type ConfigSource interface {
	ModuleEnabled(name string) (enabled bool, ok bool)
	DecodeModule(name string, v any) (bool, error)
}

// Option declares a named argument of a leaf command.
type Option struct {
	Name        string
	Description string
	Type        discordgo.ApplicationCommandOptionType
	Required    bool
}

// Module is a node of the command tree. Nodes with submodules only route;
// their execute callback is never called.
type Module struct {
	command     string
	aliases     []string
	help        string
	options     []Option
	permissions int64
	execute     ExecuteFunc
	check       func() error

	rootName   string
	enabled    bool
	parent     *Module
	submodules []*Module
}

func (m *Module) Command() string     { return m.command }
func (m *Module) Aliases() []string   { return append([]string(nil), m.aliases...) }
func (m *Module) Help() string        { return m.help }
func (m *Module) Options() []Option   { return append([]Option(nil), m.options...) }
func (m *Module) Permissions() int64  { return m.permissions }
func (m *Module) RootName() string    { return m.rootName }
func (m *Module) Parent() *Module     { return m.parent }
func (m *Module) Enabled() bool       { return m.enabled }
func (m *Module) SetEnabled(v bool)   { m.enabled = v }
func (m *Module) HasSubmodules() bool { return len(m.submodules) > 0 }

func (m *Module) Submodules() []*Module {
	return append([]*Module(nil), m.submodules...)
}

// Reachable reports whether the module and all of its ancestors are enabled.
func (m *Module) Reachable() bool {
	for n := m; n != nil; n = n.parent {
		if !n.enabled {
			return false
		}
	}
	return true
}

// Path returns the command chain from the root down to m.
func (m *Module) Path() []string {
	var path []string
	for n := m; n != nil; n = n.parent {
		path = append([]string{n.command}, path...)
	}
	return path
}

// Usage renders the invocation of a leaf, e.g. "notes add user=<user> note=<text>".
func (m *Module) Usage() string {
	parts := m.Path()
	for _, o := range m.options {
		arg := fmt.Sprintf("%v=<%v>", o.Name, optionTypeName(o.Type))
		if !o.Required {
			arg = "[" + arg + "]"
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

func (m *Module) names() []string {
	return append([]string{m.command}, m.aliases...)
}

func (m *Module) matches(token string) bool {
	for _, n := range m.names() {
		if strings.EqualFold(n, token) {
			return true
		}
	}
	return false
}

// RegisterSubmodule appends child to m. Sibling commands and aliases must be
// unique, compared case-insensitively.
func (m *Module) RegisterSubmodule(child *Module) error {
	if child.parent != nil {
		return fmt.Errorf("%w: %v", ErrAlreadyRegistered, child.command)
	}
	if err := checkConflicts(m.submodules, child); err != nil {
		return err
	}
	child.parent = m
	child.setRootName(m.rootName)
	m.submodules = append(m.submodules, child)
	return nil
}

func (m *Module) setRootName(name string) {
	m.rootName = name
	for _, c := range m.submodules {
		c.setRootName(name)
	}
}

func checkConflicts(siblings []*Module, m *Module) error {
	for _, s := range siblings {
		for _, name := range m.names() {
			if s.matches(name) {
				return fmt.Errorf("%w: %q conflicts with %q", ErrDuplicate, name, s.command)
			}
		}
	}
	return nil
}

// Builder assembles a Module.
type Builder struct {
	m *Module
}

func NewBuilder(command string) *Builder {
	return &Builder{m: &Module{command: strings.ToLower(command)}}
}

func (b *Builder) Help(help string) *Builder {
	b.m.help = help
	return b
}

func (b *Builder) Aliases(aliases ...string) *Builder {
	for _, a := range aliases {
		b.m.aliases = append(b.m.aliases, strings.ToLower(a))
	}
	return b
}

func (b *Builder) Option(name, description string, typ discordgo.ApplicationCommandOptionType, required bool) *Builder {
	b.m.options = append(b.m.options, Option{
		Name:        strings.ToLower(name),
		Description: description,
		Type:        typ,
		Required:    required,
	})
	return b
}

func (b *Builder) Permissions(perms int64) *Builder {
	b.m.permissions = perms
	return b
}

func (b *Builder) Execute(fn ExecuteFunc) *Builder {
	b.m.execute = fn
	return b
}

// ConfigKey overrides the entry under modules that controls a root. It
// defaults to the command name.
func (b *Builder) ConfigKey(name string) *Builder {
	b.m.rootName = name
	return b
}

// Check sets a validation of the root's options. A root whose check fails
// stays disabled, both when built and on Refresh.
func (b *Builder) Check(fn func() error) *Builder {
	b.m.check = fn
	return b
}

// Sub builds a submodule. It is reachable once registered under an enabled
// parent.
func (b *Builder) Sub() *Module {
	b.m.enabled = true
	return b.m
}

// Root builds a root module bound to its entry under modules. A missing
// entry yields a disabled module rather than an error, so one misconfigured
// feature does not keep the others from loading.
func (b *Builder) Root(cfg ConfigSource) (*Module, Availability) {
	m := b.m
	if m.rootName == "" {
		m.rootName = m.command
	}

	enabled, ok := cfg.ModuleEnabled(m.rootName)
	if !ok {
		m.enabled = false
		return m, Missing(fmt.Sprintf("no entry for %q under modules", m.rootName))
	}
	if err := m.validate(); err != nil {
		m.enabled = false
		return m, Invalid(err)
	}
	switch {
	case !enabled:
		m.enabled = false
		return m, Disabled(fmt.Sprintf("%q is disabled in config", m.rootName))
	default:
		m.enabled = true
		return m, Available()
	}
}

func (m *Module) validate() error {
	if m.check == nil {
		return nil
	}
	return m.check()
}

func optionTypeName(t discordgo.ApplicationCommandOptionType) string {
	switch t {
	case discordgo.ApplicationCommandOptionUser:
		return "user"
	case discordgo.ApplicationCommandOptionChannel:
		return "channel"
	case discordgo.ApplicationCommandOptionRole:
		return "role"
	case discordgo.ApplicationCommandOptionInteger:
		return "number"
	case discordgo.ApplicationCommandOptionBoolean:
		return "true|false"
	default:
		return "text"
	}
}
