package module

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/warden/logger"
	"go.uber.org/zap"
)

// Router owns the root modules and dispatches input to them.
type Router struct {
	mu       sync.RWMutex
	roots    []*Module
	cfg      ConfigSource
	log      *logger.Logger
	onToggle func()
}

func NewRouter(cfg ConfigSource, log *logger.Logger) *Router {
	return &Router{
		cfg: cfg,
		log: log,
	}
}

// Register adds a root built by Builder.Root. Unavailable roots are kept so
// Refresh can enable them later, and one record is logged for them.
func (r *Router) Register(m *Module, a Availability) error {
	if m.parent != nil {
		return fmt.Errorf("%w: %v", ErrAlreadyRegistered, m.command)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := checkConflicts(r.roots, m); err != nil {
		return err
	}
	r.roots = append(r.roots, m)

	ev := logger.Event{
		Category:    logger.CategoryModule,
		Location:    "module.Router.Register",
		Description: fmt.Sprintf("module %q %v", m.rootName, a.Status),
	}
	if a.Reason != "" {
		ev.Description += ": " + a.Reason
	}
	switch a.Status {
	case StatusMissing, StatusInvalid:
		r.log.LogEvent(ev, logger.VerbosityWarning)
	default:
		r.log.LogEvent(ev, logger.VerbosityInfo)
	}
	return nil
}

// OnToggle sets a callback run after a Refresh that enabled or disabled at
// least one root. It runs without the router lock held.
func (r *Router) OnToggle(fn func()) {
	r.mu.Lock()
	r.onToggle = fn
	r.mu.Unlock()
}

func (r *Router) Roots() []*Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Module(nil), r.roots...)
}

// Refresh re-reads the enabled flag of every root from the configuration.
// A root whose options no longer pass its check is disabled.
func (r *Router) Refresh() {
	if !r.refresh() {
		return
	}
	if fn := r.toggleHook(); fn != nil {
		fn()
	}
}

func (r *Router) toggleHook() func() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.onToggle
}

func (r *Router) refresh() (changed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.roots {
		enabled, ok := r.cfg.ModuleEnabled(m.rootName)
		enabled = enabled && ok
		if enabled {
			if err := m.validate(); err != nil {
				enabled = false
				if m.enabled {
					r.log.LogEvent(logger.Event{
						Category:    logger.CategoryModule,
						Location:    "module.Router.Refresh",
						Description: fmt.Sprintf("module %q %v: %v", m.rootName, StatusInvalid, err),
					}, logger.VerbosityWarning)
				}
			}
		}
		if enabled == m.enabled {
			continue
		}
		m.enabled = enabled
		changed = true
		r.log.Info("module toggled", zap.String("module", m.rootName), zap.Bool("enabled", enabled))
	}
	return changed
}

// Resolution is where a command path ended up in the tree.
type Resolution struct {
	Module *Module
	// Consumed is the number of path tokens that matched modules.
	Consumed int
	// Help is set when the path stopped at a module with submodules.
	Help bool
}

// Resolve walks path through the reachable part of the tree.
func (r *Router) Resolve(path []string) (Resolution, bool) {
	if len(path) == 0 {
		return Resolution{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	m := match(r.roots, path[0])
	if m == nil {
		return Resolution{}, false
	}
	res := Resolution{Module: m, Consumed: 1}
	for m.HasSubmodules() {
		if res.Consumed >= len(path) {
			res.Help = true
			break
		}
		child := match(m.submodules, path[res.Consumed])
		if child == nil {
			res.Help = true
			break
		}
		m = child
		res.Module = m
		res.Consumed++
	}
	return res, true
}

func match(mods []*Module, token string) *Module {
	for _, m := range mods {
		if m.enabled && m.matches(token) {
			return m
		}
	}
	return nil
}

// DispatchText handles a prefixed chat message with the prefix already
// removed. It returns the reply to deliver, or nil.
func (r *Router) DispatchText(ctx context.Context, input string, caller Caller) *discordgo.MessageSend {
	toks := fields(input)
	if len(toks) == 0 {
		return nil
	}
	path := make([]string, len(toks))
	for i, t := range toks {
		path[i] = t.text
	}

	res, ok := r.Resolve(path)
	if !ok {
		if strings.EqualFold(path[0], "help") {
			return r.rootHelp()
		}
		return ErrorReply("Unknown command", fmt.Sprintf("There is no command called `%v`.", path[0]))
	}
	if res.Help {
		return r.help(res.Module)
	}

	args := ""
	if res.Consumed < len(toks) {
		args = strings.TrimSpace(input[toks[res.Consumed].start:])
	}
	opts, err := ParseOptions(args, res.Module.options)
	if err != nil {
		return ErrorReply("Invalid arguments", fmt.Sprintf("%v\nUsage: `%v`", err, res.Module.Usage()))
	}
	return r.run(ctx, res.Module, &Request{
		Args:    args,
		Options: opts,
		Caller:  caller,
	})
}

// DispatchPath handles an interaction flattened by InteractionPath.
func (r *Router) DispatchPath(ctx context.Context, path []string, opts map[string]string, caller Caller) *discordgo.MessageSend {
	res, ok := r.Resolve(path)
	if !ok {
		return ErrorReply("Unknown command", "This command is not available.")
	}
	if res.Help {
		return r.help(res.Module)
	}
	if opts == nil {
		opts = map[string]string{}
	}
	return r.run(ctx, res.Module, &Request{
		Options: opts,
		Caller:  caller,
	})
}

func (r *Router) help(m *Module) *discordgo.MessageSend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return helpReply(m)
}

func (r *Router) rootHelp() *discordgo.MessageSend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return rootHelpReply(r.roots)
}

// run executes a resolved leaf. A handler error becomes a reply naming the
// failure; a panic becomes a generic failure reply.
func (r *Router) run(ctx context.Context, m *Module, req *Request) (reply *discordgo.MessageSend) {
	if !permitted(m, req.Caller.Permissions) {
		return ErrorReply("Missing permissions", "You are not allowed to use this command.")
	}
	for _, o := range m.options {
		if o.Required && req.Options[o.Name] == "" {
			return ErrorReply("Missing option", fmt.Sprintf("`%v` is required.\nUsage: `%v`", o.Name, m.Usage()))
		}
	}
	if m.execute == nil {
		return nil
	}
	req.Module = m

	cmd := strings.Join(m.Path(), " ")
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("command panicked",
				zap.String("command", cmd),
				zap.String("userID", req.Caller.UserID),
				zap.Any("reason", rec),
			)
			reply = genericFailureReply()
		}
	}()

	reply, err := m.execute(ctx, req)
	if err != nil {
		r.log.Error("command failed",
			zap.String("command", cmd),
			zap.String("userID", req.Caller.UserID),
			zap.Error(err),
		)
		return FailureReply(err)
	}
	return reply
}

func permitted(m *Module, perms int64) bool {
	var required int64
	for n := m; n != nil; n = n.parent {
		required |= n.permissions
	}
	if required == 0 || perms&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return perms&required == required
}
