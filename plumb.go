package main

import (
	"bufio"

	"9fans.net/go/plan9"
	"9fans.net/go/plumb"
	"go.uber.org/zap"
)

// Plumber takes queries from the "pass" port. A plumbing rule like
//
//	type is text
//	data matches 'pass .+'
//	plumb to pass
//
// sends launcher-style queries here; the trigger is stripped.
func (ui *UI) plumber() {
	if *noPlumber {
		return
	}
	msg := make(chan *plumb.Message)
	port, err := plumb.Open("pass", plan9.OREAD)
	if err != nil {
		logger.Warn("not listening to the plumber", zap.Error(err))
		return
	}
	go func() {
		defer func() { msg <- nil }()

		r := bufio.NewReader(port)
		for {
			m := &plumb.Message{}
			if err := m.Recv(r); err != nil {
				logger.Warn("plumb receive", zap.Error(err))
				return
			}
			msg <- m
		}
	}()
	var m *plumb.Message
	for {
		select {
		case <-ui.exited:
			return
		case m = <-msg:
			if m == nil {
				return
			}
		}
		switch m.Type {
		case "text":
			debug("plumbed query: %q", m.Data)
			ui.query(string(m.Data))
		case "exit":
			debug("told to leave via plumber")
			ui.leave()
			return
		}
	}
}
