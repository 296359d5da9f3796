// Package launcher turns launcher queries into actionable password-store
// items.
//
// The handler never reads a secret itself. Every action is a command line
// for pass(1) or gopass(1), started detached from the host.
package launcher

import (
	"path"
	"strconv"

	"github.com/hdonnay/Pass/internal/config"
)

// Action IDs.
const (
	Copy     = "copy"
	Edit     = "edit"
	Remove   = "remove"
	Generate = "generate"
)

// GenerateID is the ID of the single item a "generate" query produces.
const GenerateID = "generate_password"

// Action is something the host can do with an item.
type Action struct {
	ID   string
	Text string
	Argv []string
}

// Item is one launcher result.
type Item struct {
	ID      string
	Text    string
	Subtext string
	// Completion is what the host puts in its input line when the item is
	// completed; empty means no completion.
	Completion string
	Actions    []Action
}

// Action returns the item's action with the given ID.
func (i *Item) Action(id string) (Action, bool) {
	for _, a := range i.Actions {
		if a.ID == id {
			return a, true
		}
	}
	return Action{}, false
}

// Find returns the item with the given ID.
func Find(items []Item, id string) (*Item, bool) {
	for n := range items {
		if items[n].ID == id {
			return &items[n], true
		}
	}
	return nil, false
}

// Commands builds the command lines for a backend.
type commands struct {
	bin     string
	backend config.Backend
}

func newCommands(b config.Backend) commands {
	return commands{bin: string(b), backend: b}
}

func (c commands) copy(name string) []string {
	if c.backend == config.Gopass {
		return []string{c.bin, "show", "--clip", name}
	}
	return []string{c.bin, "--clip", name}
}

func (c commands) edit(name string) []string {
	return []string{c.bin, "edit", name}
}

func (c commands) remove(name string) []string {
	return []string{c.bin, "rm", "--force", name}
}

func (c commands) otp(name string) []string {
	return []string{c.bin, "otp", "--clip", name}
}

func (c commands) generate(name string, length int) []string {
	return []string{c.bin, "generate", "--clip", name, strconv.Itoa(length)}
}

func passwordItem(c commands, name string) Item {
	return Item{
		ID:         name,
		Text:       path.Base(name),
		Subtext:    name,
		Completion: "pass " + name,
		Actions: []Action{
			{ID: Copy, Text: "Copy", Argv: c.copy(name)},
			{ID: Edit, Text: "Edit", Argv: c.edit(name)},
			{ID: Remove, Text: "Remove", Argv: c.remove(name)},
		},
	}
}

func otpItem(c commands, name string) Item {
	return Item{
		ID:      name,
		Text:    path.Base(name),
		Subtext: name,
		Actions: []Action{
			{ID: Copy, Text: "Copy", Argv: c.otp(name)},
		},
	}
}
