package launcher

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"github.com/hdonnay/Pass/internal/config"
	"github.com/hdonnay/Pass/internal/store"
)

type fakeLister struct {
	pw, otp []string
	err     error
}

func (f *fakeLister) List(_ context.Context, otp bool) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	if otp {
		return append([]string(nil), f.otp...), nil
	}
	return append([]string(nil), f.pw...), nil
}

type recRunner struct {
	argv [][]string
}

func (r *recRunner) Start(_ context.Context, argv []string) error {
	r.argv = append(r.argv, argv)
	return nil
}

func newTestHandler(t *testing.T, cfg config.Config) (*Handler, *recRunner) {
	t.Helper()
	l := &fakeLister{
		pw:  []string{"bank", "email/home", "Email/work", "totp/github-otp"},
		otp: []string{"totp/github-otp", "totp/gitlab-otp"},
	}
	r := &recRunner{}
	h := New(cfg,
		WithLister(func(config.Config) store.Lister { return l }),
		WithRunner(r),
		WithLogger(zaptest.NewLogger(t)),
	)
	return h, r
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i := range items {
		out[i] = items[i].ID
	}
	return out
}

func TestItemsPasswords(t *testing.T) {
	h, _ := newTestHandler(t, config.Default())
	ctx := context.Background()

	items, err := h.Items(ctx, "  WORK ")
	if err != nil {
		t.Fatal(err)
	}
	want := []Item{{
		ID:         "Email/work",
		Text:       "work",
		Subtext:    "Email/work",
		Completion: "pass Email/work",
		Actions: []Action{
			{ID: Copy, Text: "Copy", Argv: []string{"pass", "--clip", "Email/work"}},
			{ID: Edit, Text: "Edit", Argv: []string{"pass", "edit", "Email/work"}},
			{ID: Remove, Text: "Remove", Argv: []string{"pass", "rm", "--force", "Email/work"}},
		},
	}}
	if !cmp.Equal(items, want) {
		t.Error(cmp.Diff(items, want))
	}

	tt := []struct {
		Query string
		Want  []string
	}{
		{Query: "", Want: []string{"bank", "email/home", "Email/work", "totp/github-otp"}},
		{Query: "email", Want: []string{"email/home", "Email/work"}},
		// OTP is off, so "otp" is an ordinary filter.
		{Query: "otp", Want: []string{"totp/github-otp"}},
		{Query: "otp git", Want: []string{}},
		// Only the whole word selects generation.
		{Query: "generator", Want: []string{}},
	}
	for _, tc := range tt {
		items, err := h.Items(ctx, tc.Query)
		if err != nil {
			t.Fatal(err)
		}
		if have := ids(items); !cmp.Equal(have, tc.Want) {
			t.Errorf("%q: %s", tc.Query, cmp.Diff(have, tc.Want))
		}
	}
}

func TestItemsGenerate(t *testing.T) {
	h, _ := newTestHandler(t, config.Default())
	ctx := context.Background()

	items, err := h.Items(ctx, "generate web/new")
	if err != nil {
		t.Fatal(err)
	}
	want := []Item{{
		ID:         GenerateID,
		Text:       "Generate a new password",
		Subtext:    "The new password will be located at web/new",
		Completion: "pass generate web/new",
		Actions: []Action{
			{ID: Generate, Text: "Generate", Argv: []string{"pass", "generate", "--clip", "web/new", "20"}},
		},
	}}
	if !cmp.Equal(items, want) {
		t.Error(cmp.Diff(items, want))
	}

	items, err = h.Items(ctx, "generate")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || len(items[0].Actions) != 0 {
		t.Errorf("want one inert item, got %+v", items)
	}
}

func TestItemsOTP(t *testing.T) {
	cfg := config.Default()
	cfg.UseOTP = true
	h, _ := newTestHandler(t, cfg)
	ctx := context.Background()

	items, err := h.Items(ctx, "otp")
	if err != nil {
		t.Fatal(err)
	}
	if have, want := ids(items), []string{"totp/github-otp", "totp/gitlab-otp"}; !cmp.Equal(have, want) {
		t.Error(cmp.Diff(have, want))
	}

	want := []Item{{
		ID:      "totp/gitlab-otp",
		Text:    "gitlab-otp",
		Subtext: "totp/gitlab-otp",
		Actions: []Action{
			{ID: Copy, Text: "Copy", Argv: []string{"pass", "otp", "--clip", "totp/gitlab-otp"}},
		},
	}}
	for _, q := range []string{"otp LAB", "otp\tLAB", "otp \t LAB\n"} {
		items, err = h.Items(ctx, q)
		if err != nil {
			t.Fatal(err)
		}
		if !cmp.Equal(items, want) {
			t.Errorf("%q: %s", q, cmp.Diff(items, want))
		}
	}
}

func TestSplitQuery(t *testing.T) {
	tt := []struct {
		In, Word, Rest string
	}{
		{In: "otp foo", Word: "otp", Rest: "foo"},
		{In: "otp\tfoo", Word: "otp", Rest: "foo"},
		{In: " generate\n web/new ", Word: "generate", Rest: "web/new"},
		{In: "email", Word: "email"},
		{In: "", Word: ""},
	}
	for _, tc := range tt {
		word, rest := SplitQuery(tc.In)
		if word != tc.Word || rest != tc.Rest {
			t.Errorf("SplitQuery(%q) = %q, %q; want %q, %q", tc.In, word, rest, tc.Word, tc.Rest)
		}
	}
}

func TestItemsGopass(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = config.Gopass
	cfg.UseOTP = true
	cfg.GenerateLength = 32
	h, _ := newTestHandler(t, cfg)
	ctx := context.Background()

	tt := []struct {
		Query, ID, Action string
		Want              []string
	}{
		{"bank", "bank", Copy, []string{"gopass", "show", "--clip", "bank"}},
		{"bank", "bank", Remove, []string{"gopass", "rm", "--force", "bank"}},
		{"otp hub", "totp/github-otp", Copy, []string{"gopass", "otp", "--clip", "totp/github-otp"}},
		{"generate x/y", GenerateID, Generate, []string{"gopass", "generate", "--clip", "x/y", "32"}},
	}
	for _, tc := range tt {
		items, err := h.Items(ctx, tc.Query)
		if err != nil {
			t.Fatal(err)
		}
		it, ok := Find(items, tc.ID)
		if !ok {
			t.Fatalf("%q: no item %q", tc.Query, tc.ID)
		}
		a, ok := it.Action(tc.Action)
		if !ok {
			t.Fatalf("%q: no action %q", tc.Query, tc.Action)
		}
		if !cmp.Equal(a.Argv, tc.Want) {
			t.Error(cmp.Diff(a.Argv, tc.Want))
		}
	}
}

func TestItemsFuzzy(t *testing.T) {
	cfg := config.Default()
	cfg.Match = config.Fuzzy
	h, _ := newTestHandler(t, cfg)
	items, err := h.Items(context.Background(), "ehm")
	if err != nil {
		t.Fatal(err)
	}
	if have, want := ids(items), []string{"email/home"}; !cmp.Equal(have, want) {
		t.Error(cmp.Diff(have, want))
	}
}

func TestItemsListError(t *testing.T) {
	boom := errors.New("boom")
	h := New(config.Default(),
		WithLister(func(config.Config) store.Lister { return &fakeLister{err: boom} }),
		WithRunner(&recRunner{}),
	)
	if _, err := h.Items(context.Background(), ""); !errors.Is(err, boom) {
		t.Errorf("unexpected error: %v", err)
	}
	// Generation doesn't touch the store.
	if _, err := h.Items(context.Background(), "generate a"); err != nil {
		t.Error(err)
	}
}

func TestDo(t *testing.T) {
	h, r := newTestHandler(t, config.Default())
	ctx := context.Background()

	if err := h.Do(ctx, "home", "email/home", ""); err != nil {
		t.Fatal(err)
	}
	if err := h.Do(ctx, "home", "email/home", Edit); err != nil {
		t.Fatal(err)
	}
	if err := h.Do(ctx, "generate a/b", GenerateID, ""); err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"pass", "--clip", "email/home"},
		{"pass", "edit", "email/home"},
		{"pass", "generate", "--clip", "a/b", "20"},
	}
	if !cmp.Equal(r.argv, want) {
		t.Error(cmp.Diff(r.argv, want))
	}

	for _, tc := range []struct{ Query, ID, Action string }{
		{"home", "bank", ""},
		{"home", "email/home", Generate},
		{"generate", GenerateID, ""},
	} {
		if err := h.Do(ctx, tc.Query, tc.ID, tc.Action); err == nil {
			t.Errorf("%+v: expected error", tc)
		}
	}
	if len(r.argv) != len(want) {
		t.Errorf("unexpected runs: %q", r.argv[len(want):])
	}
}

func TestSettings(t *testing.T) {
	h, _ := newTestHandler(t, config.Default())
	ctx := context.Background()

	if items, _ := h.Items(ctx, "otp"); len(items) != 1 {
		t.Fatalf("otp disabled: got %q", ids(items))
	}
	if cfg := h.SetUseOTP(true); !cfg.UseOTP {
		t.Error("use_otp not set")
	}
	if items, _ := h.Items(ctx, "otp"); len(items) != 2 {
		t.Fatalf("otp enabled: got %q", ids(items))
	}

	if _, err := h.SetOTPGlob("["); err == nil {
		t.Error("bad glob accepted")
	}
	if g := h.Config().OTPGlob; g != config.DefaultOTPGlob {
		t.Errorf("glob changed to %q", g)
	}
	cfg, err := h.SetOTPGlob("*.otp.gpg")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.OTPGlob != "*.otp.gpg" {
		t.Errorf("glob is %q", cfg.OTPGlob)
	}
}

func TestTrigger(t *testing.T) {
	h, _ := newTestHandler(t, config.Default())
	if h.Trigger() != "pass " || h.Synopsis() != "<pass-name>" {
		t.Errorf("trigger %q, synopsis %q", h.Trigger(), h.Synopsis())
	}
	for in, want := range map[string]string{
		"pass email":   "email",
		"  pass otp x": "otp x",
		"pass":         "",
		"passport":     "passport",
		"email":        "email",
	} {
		if have := StripTrigger(in); have != want {
			t.Errorf("StripTrigger(%q) = %q, want %q", in, have, want)
		}
	}
}

func TestListerFor(t *testing.T) {
	cfg := config.Default()
	cfg.StoreDir = "/store"
	if _, ok := ListerFor(cfg, nil).(*store.Dir); !ok {
		t.Error("pass backend should walk the store")
	}
	cfg.Backend = config.Gopass
	if l, ok := ListerFor(cfg, nil).(*store.CLI); !ok || l.Bin != "gopass" {
		t.Error("gopass backend should use the CLI")
	}
}
