package main

import (
	"log/slog"
	"sync/atomic"
)

// consolePort is the device port for the reference client: it has no
// real virtqueues, so link changes and kicks are logged and counted.
type consolePort struct {
	logger *slog.Logger
	kicks  atomic.Uint64
	linkUp atomic.Bool
}

func newConsolePort(logger *slog.Logger) *consolePort {
	return &consolePort{logger: logger}
}

func (p *consolePort) SetLinkStatus(up bool) {
	p.linkUp.Store(up)
	if up {
		p.logger.Info("link up")
	} else {
		p.logger.Info("link down")
	}
}

func (p *consolePort) NotifyQueue(index uint16) {
	p.kicks.Add(1)
	p.logger.Debug("queue notified", "queue", index)
}

// kickCounter exposes the kick count to the interactive console.
func (p *consolePort) kickCounter() func() uint64 {
	return p.kicks.Load
}
