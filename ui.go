package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"text/tabwriter"

	"9fans.net/go/acme"
	"go.uber.org/zap"

	"github.com/hdonnay/Pass/internal/config"
	"github.com/hdonnay/Pass/internal/launcher"
)

const searchTag = ` Get Copy Edit Rm Generate Otp UseOtp OtpGlob `

// Window titles, also accepted by look.
const (
	titleSearch = "search"
	titleOTP    = "otp"
)

type win struct {
	*acme.Win
	Title string
	// OTP windows list one-time-password entries.
	OTP bool

	reload func(*win)

	// Mu serializes address and data writes; the event loop, the plumber
	// and the store watcher all reload windows.
	mu    sync.Mutex
	items []launcher.Item
	ids   []string
}

func (w *win) Clear() {
	w.Addr(",")
	w.Write("data", nil)
}

func (w *win) Reload() {
	if w.reload != nil {
		w.reload(w)
	}
}

func (w *win) header() string {
	if w.OTP {
		return "Otp:"
	}
	return "Search:"
}

// Query reads the query back out of the first line.
func (w *win) query() (string, error) {
	if err := w.Addr("1"); err != nil {
		return "", err
	}
	b, err := w.ReadAll("xdata")
	if err != nil {
		return "", err
	}
	l := strings.TrimSpace(string(b))
	return strings.TrimSpace(strings.TrimPrefix(l, w.header())), nil
}

func (w *win) setQuery(q string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Clear()
	w.Fprintf("data", "%s %s\n", w.header(), q)
}

// DotEntry returns the item ID on the line holding dot.
func (w *win) dotEntry() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.Ctl("addr=dot"); err != nil {
		return "", err
	}
	q0, _, err := w.ReadAddr()
	if err != nil {
		return "", err
	}
	if err := w.Addr("#%d-+", q0); err != nil {
		return "", err
	}
	b, err := w.ReadAll("xdata")
	if err != nil {
		return "", err
	}
	id, _, _ := strings.Cut(strings.TrimRight(string(b), "\n"), "\t")
	id = strings.TrimSpace(id)
	if id == "" || strings.HasPrefix(id, w.header()) {
		return "", errors.New("no entry selected")
	}
	return id, nil
}

func (w *win) item(id string) (launcher.Item, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	it, ok := launcher.Find(w.items, id)
	if !ok {
		return launcher.Item{}, false
	}
	return *it, true
}

const addrdelim = "/[ \t\\n<>()\\[\\]]/"

func (w *win) loadText(e *acme.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var err error
	w.Addr("#%d,#%d+%s", e.Q0, e.Q0, addrdelim)
	e.Q0, e.Q1, err = w.ReadAddr()
	if err != nil {
		logger.Warn("reading address", zap.Error(err))
	}
	e.Q1--
	w.Addr("#%d,#%d", e.Q0, e.Q1)

	data, err := w.ReadAll("xdata")
	if err != nil {
		logger.Warn("reading text", zap.Error(err))
	}
	e.Text = data
}

func (w *win) loop(ui *UI) {
	defer ui.exit(w.Title)
	for e := range w.EventChan() {
		switch e.C2 {
		case 'x', 'X': // button 2
			args := unquote(e.Text)
			if len(e.Arg) != 0 {
				args = append(args, unquote(e.Arg)...)
			}
			if len(args) == 0 || !ui.execute(w, args[0], args[1:]) {
				w.WriteEvent(e)
			}
		case 'l', 'L': // button 3
			// Clicks get expanded over entry names; sweeps are taken as-is.
			if e.OrigQ0 == e.OrigQ1 {
				w.loadText(e)
			}
			if !ui.pick(w, strings.TrimSpace(string(e.Text))) {
				w.WriteEvent(e)
			}
		}
	}
}

type UI struct {
	sync.Mutex
	win    map[string]*win
	exited chan struct{}
	ctx    context.Context

	h       *launcher.Handler
	cfgPath string
	prefix  string
}

func (u *UI) err(s string) {
	if !strings.HasSuffix(s, "\n") {
		s = s + "\n"
	}
	w, err := u.get("+Errors", nil)
	if err != nil {
		logger.Error("opening acme window", zap.Error(err))
		logger.Error(strings.TrimSpace(s))
		return
	}
	w.Fprintf("body", "%s", s)
	w.Addr("$")
	w.Ctl("dot=addr")
	w.Ctl("show")
}

func (u *UI) start(ctx context.Context, prefix, query string) {
	if prefix == "" {
		prefix = "/pass/"
	}

	u.Lock()
	if u.win == nil {
		u.win = make(map[string]*win)
	}
	if u.prefix == "" {
		u.prefix = prefix
	}
	u.ctx = ctx
	u.exited = make(chan struct{})
	u.Unlock()

	if u.query(query) == nil {
		close(u.exited)
	}
}

// Window returns the window titled title, calling mk to make one if there is
// none. Made reports whether mk was called.
func (u *UI) window(title string, mk func(title string) (*win, error)) (w *win, made bool, err error) {
	u.Lock()
	defer u.Unlock()
	if w, ok := u.win[title]; ok {
		return w, false, nil
	}
	w, err = mk(title)
	if err != nil {
		return nil, false, err
	}
	u.win[title] = w
	return w, true, nil
}

// Get shows the window titled title, opening it first if needed. Setup runs
// on a new window before any other goroutine can see it.
func (u *UI) get(title string, setup func(*win)) (*win, error) {
	w, made, err := u.window(title, func(title string) (*win, error) {
		aw, err := acme.New()
		if err != nil {
			return nil, err
		}
		w := &win{Win: aw, Title: title}
		w.Name("%s", path.Join(u.prefix, title))
		if setup != nil {
			setup(w)
		}
		return w, nil
	})
	if err != nil {
		return nil, err
	}
	if made {
		go w.loop(u)
	} else {
		w.Ctl("show")
	}
	return w, nil
}

func (u *UI) show(title string) *win {
	u.Lock()
	defer u.Unlock()
	if w, ok := u.win[title]; ok {
		w.Ctl("show")
		return w
	}
	return nil
}

// Look opens one of the UI's own windows by title.
func (u *UI) look(title string) bool {
	switch title {
	case titleSearch:
		return u.open(titleSearch, "") != nil
	case titleOTP:
		return u.open(titleOTP, "") != nil
	}
	return false
}

// Query routes a launcher query to the search or OTP window.
func (u *UI) query(q string) *win {
	q = strings.TrimSpace(launcher.StripTrigger(q))
	word, rest := launcher.SplitQuery(q)
	if word == "otp" && u.h.Config().UseOTP {
		return u.open(titleOTP, rest)
	}
	return u.open(titleSearch, q)
}

func (u *UI) open(title, q string) *win {
	w, err := u.get(title, func(w *win) {
		w.OTP = title == titleOTP
		w.Ctl("cleartag")
		w.Fprintf("tag", searchTag)
		w.reload = u.fetch
	})
	if err != nil {
		logger.Error("opening acme window", zap.String("title", title), zap.Error(err))
		return nil
	}
	w.setQuery(q)
	w.Reload()
	return w
}

func (u *UI) fetch(w *win) {
	w.mu.Lock()
	defer w.mu.Unlock()
	q, err := w.query()
	if err != nil {
		u.err(err.Error())
		return
	}
	full := q
	if w.OTP {
		if !u.h.Config().UseOTP {
			u.err("OTP is disabled; UseOtp enables it")
			return
		}
		full = "otp " + q
	}
	items, err := u.h.Items(u.ctx, full)
	if err != nil {
		u.err(err.Error())
		return
	}

	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "%s %s\n\n", w.header(), q)
	wr := tabwriter.NewWriter(buf, 4, 4, 1, '\t', 0)
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
		desc := it.Subtext
		if desc == it.ID {
			desc = actionIDs(it)
		}
		fmt.Fprintf(wr, "%s\t%s\n", it.ID, desc)
	}
	wr.Flush()

	if w.ids != nil {
		added, removed := diffStrings(ids, w.ids)
		if len(added) != 0 || len(removed) != 0 {
			debug("%s: added %q, removed %q", w.Title, added, removed)
		}
	}
	w.items, w.ids = items, ids

	w.Clear()
	w.Write("data", buf.Bytes())
	w.Ctl("clean")
	w.Addr("0")
	w.Ctl("dot=addr")
	w.Ctl("show")
}

// Execute handles button-2 commands, reporting whether cmd was one.
func (u *UI) execute(w *win, cmd string, args []string) bool {
	switch cmd {
	case "Get":
		w.Reload()
	case "Del":
		w.Ctl("del")
	case "Search":
		u.open(titleSearch, strings.Join(args, " "))
	case "Copy":
		u.act(w, launcher.Copy, args)
	case "Edit":
		u.act(w, launcher.Edit, args)
	case "Rm":
		u.act(w, launcher.Remove, args)
	case "Generate":
		u.generate(args)
	case "Otp":
		if !u.h.Config().UseOTP {
			u.err("OTP is disabled; UseOtp enables it")
			break
		}
		u.open(titleOTP, strings.Join(args, " "))
	case "UseOtp":
		u.toggleOTP()
	case "OtpGlob":
		u.setOTPGlob(strings.Join(args, " "))
	default:
		return false
	}
	return true
}

// Act runs the action on the entry named in args, or the entry at dot.
func (u *UI) act(w *win, action string, args []string) {
	id := strings.Join(args, " ")
	if id == "" {
		var err error
		if id, err = w.dotEntry(); err != nil {
			u.err(err.Error())
			return
		}
	}
	it, ok := w.item(id)
	if !ok {
		u.err(fmt.Sprintf("%q is not listed in %s", id, w.Title))
		return
	}
	a, ok := it.Action(action)
	if !ok {
		u.err(fmt.Sprintf("can't %s %q", action, id))
		return
	}
	if err := u.h.Run(u.ctx, a); err != nil {
		u.err(err.Error())
	}
}

// Pick runs the default action of a looked-at entry.
func (u *UI) pick(w *win, id string) bool {
	it, ok := w.item(id)
	if !ok {
		return u.look(id)
	}
	if len(it.Actions) == 0 {
		u.err(fmt.Sprintf("nothing to do for %q", id))
		return true
	}
	if err := u.h.Run(u.ctx, it.Actions[0]); err != nil {
		u.err(err.Error())
	}
	return true
}

func (u *UI) generate(args []string) {
	loc := strings.Join(args, " ")
	if loc == "" {
		u.err("Generate needs a pass-name")
		return
	}
	if err := u.h.Do(u.ctx, "generate "+loc, launcher.GenerateID, launcher.Generate); err != nil {
		u.err(err.Error())
	}
}

func (u *UI) toggleOTP() {
	cfg := u.h.SetUseOTP(!u.h.Config().UseOTP)
	if err := config.Save(u.cfgPath, cfg); err != nil {
		u.err(err.Error())
	}
	u.err(fmt.Sprintf("use_otp: %v", cfg.UseOTP))
}

func (u *UI) setOTPGlob(g string) {
	if g == "" {
		u.err(fmt.Sprintf("otp_glob: %s", u.h.Config().OTPGlob))
		return
	}
	cfg, err := u.h.SetOTPGlob(g)
	if err != nil {
		u.err(err.Error())
		return
	}
	if err := config.Save(u.cfgPath, cfg); err != nil {
		u.err(err.Error())
	}
	if w := u.show(titleOTP); w != nil {
		w.Reload()
	}
}

func (u *UI) reloadAll() {
	u.Lock()
	ws := make([]*win, 0, len(u.win))
	for _, w := range u.win {
		ws = append(ws, w)
	}
	u.Unlock()
	for _, w := range ws {
		w.Reload()
	}
}

func (u *UI) exit(title string) {
	u.Lock()
	defer u.Unlock()
	delete(u.win, title)
	if len(u.win) == 0 {
		close(u.exited)
	}
}

func (u *UI) leave() {
	u.Lock()
	ws := make([]*win, 0, len(u.win))
	for _, w := range u.win {
		ws = append(ws, w)
	}
	u.Unlock()
	for _, w := range ws {
		w.Del(true)
	}
}
