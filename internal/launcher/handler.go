package launcher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"

	"github.com/hdonnay/Pass/internal/config"
	"github.com/hdonnay/Pass/internal/store"
)

const (
	trigger  = "pass "
	synopsis = "<pass-name>"
)

// Handler answers launcher queries against a password store.
//
// The configuration may be changed while queries are in flight; each query
// sees a consistent snapshot.
type Handler struct {
	mu  sync.Mutex
	cfg config.Config

	lister func(config.Config) store.Lister
	run    Runner
	log    *zap.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLister replaces the store lister. The function is called once per
// query with that query's configuration.
func WithLister(f func(config.Config) store.Lister) Option {
	return func(h *Handler) { h.lister = f }
}

// WithRunner replaces the runner used to start actions.
func WithRunner(r Runner) Option {
	return func(h *Handler) { h.run = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) { h.log = l }
}

// New returns a Handler for cfg.
func New(cfg config.Config, opts ...Option) *Handler {
	h := &Handler{cfg: cfg}
	for _, o := range opts {
		o(h)
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	if h.lister == nil {
		log := h.log
		h.lister = func(c config.Config) store.Lister { return ListerFor(c, log) }
	}
	if h.run == nil {
		h.run = &ExecRunner{Log: h.log, Env: EnvFor(cfg)}
	}
	return h
}

// ListerFor returns the Lister matching cfg's backend.
func ListerFor(cfg config.Config, log *zap.Logger) store.Lister {
	if cfg.Backend == config.Gopass {
		return &store.CLI{Bin: string(cfg.Backend), OTPGlob: cfg.OTPGlob, Log: log}
	}
	return &store.Dir{Root: cfg.StoreDir, OTPGlob: cfg.OTPGlob, Log: log}
}

// Trigger is the prefix a host should route to this handler.
func (h *Handler) Trigger() string { return trigger }

// Synopsis describes the expected query.
func (h *Handler) Synopsis() string { return synopsis }

// StripTrigger removes a leading trigger from q, if present.
func StripTrigger(q string) string {
	q = strings.TrimLeftFunc(q, unicode.IsSpace)
	if strings.HasPrefix(q, trigger) {
		return q[len(trigger):]
	}
	if q == strings.TrimSpace(trigger) {
		return ""
	}
	return q
}

// Config returns the current configuration.
func (h *Handler) Config() config.Config {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cfg
}

// SetUseOTP turns OTP queries on or off and returns the new configuration.
func (h *Handler) SetUseOTP(v bool) config.Config {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.log.Info("setting use_otp", zap.Bool("value", v))
	h.cfg.UseOTP = v
	return h.cfg
}

// SetOTPGlob changes the file glob that marks OTP entries and returns the new
// configuration.
func (h *Handler) SetOTPGlob(g string) (config.Config, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	next := h.cfg
	next.OTPGlob = g
	if err := next.Validate(); err != nil {
		return h.cfg, err
	}
	h.log.Info("setting otp_glob", zap.String("value", g))
	h.cfg = next
	return h.cfg, nil
}

// Items answers query. The first word selects the mode:
//
//	generate <pass-name>	a single item generating a new password
//	otp [filter]		OTP entries, when enabled
//	[filter]		password entries
func (h *Handler) Items(ctx context.Context, query string) ([]Item, error) {
	cfg := h.Config()
	q := strings.TrimSpace(query)
	word, rest := SplitQuery(q)
	switch {
	case word == "generate":
		return []Item{generateItem(cfg, q, rest)}, nil
	case word == "otp" && cfg.UseOTP:
		return h.entries(ctx, cfg, rest, true)
	default:
		return h.entries(ctx, cfg, q, false)
	}
}

// SplitQuery splits q at its first run of white space, returning the leading
// word and the trimmed remainder.
func SplitQuery(q string) (word, rest string) {
	q = strings.TrimLeftFunc(q, unicode.IsSpace)
	i := strings.IndexFunc(q, unicode.IsSpace)
	if i < 0 {
		return q, ""
	}
	return q[:i], strings.TrimSpace(q[i:])
}

func generateItem(cfg config.Config, q, location string) Item {
	it := Item{
		ID:         GenerateID,
		Text:       "Generate a new password",
		Subtext:    fmt.Sprintf("The new password will be located at %s", location),
		Completion: "pass " + q,
	}
	if location != "" {
		c := newCommands(cfg.Backend)
		it.Actions = []Action{
			{ID: Generate, Text: "Generate", Argv: c.generate(location, cfg.GenerateLength)},
		}
	}
	return it
}

func (h *Handler) entries(ctx context.Context, cfg config.Config, filter string, otp bool) ([]Item, error) {
	names, err := h.lister(cfg).List(ctx, otp)
	if err != nil {
		return nil, err
	}
	if cfg.Match == config.Fuzzy {
		names = store.Rank(names, filter)
	} else {
		names = store.Search(names, filter)
	}
	h.log.Debug("query answered",
		zap.String("filter", filter),
		zap.Bool("otp", otp),
		zap.Int("items", len(names)))

	c := newCommands(cfg.Backend)
	items := make([]Item, len(names))
	for i, n := range names {
		if otp {
			items[i] = otpItem(c, n)
		} else {
			items[i] = passwordItem(c, n)
		}
	}
	return items, nil
}

// Run starts a.
func (h *Handler) Run(ctx context.Context, a Action) error {
	h.log.Debug("running action", zap.String("action", a.ID), zap.Strings("argv", a.Argv))
	return h.run.Start(ctx, a.Argv)
}

// Do answers query, then runs the action with ID action on the item with ID
// id. An empty action runs the item's first action.
func (h *Handler) Do(ctx context.Context, query, id, action string) error {
	items, err := h.Items(ctx, query)
	if err != nil {
		return err
	}
	it, ok := Find(items, id)
	if !ok {
		return fmt.Errorf("launcher: no item %q for query %q", id, query)
	}
	var a Action
	switch {
	case action == "" && len(it.Actions) > 0:
		a = it.Actions[0]
	case action != "":
		a, ok = it.Action(action)
		if !ok {
			return fmt.Errorf("launcher: item %q has no action %q", id, action)
		}
	default:
		return fmt.Errorf("launcher: nothing to do for %q", id)
	}
	return h.Run(ctx, a)
}
