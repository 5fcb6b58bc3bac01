package core

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type probeHandle struct {
	cancel context.CancelFunc
}

// probeRunner supervises the delayed convergence probes fired after a
// lifecycle action. At most one probe is pending per workspace id; a
// newer probe or an explicit Cancel supersedes the pending one, so a
// deleted workspace can never be resurrected by a stale probe.
type probeRunner struct {
	logger  *slog.Logger
	delay   time.Duration
	mu      sync.Mutex
	pending map[string]*probeHandle
	wg      sync.WaitGroup
}

func newProbeRunner(logger *slog.Logger, delay time.Duration) *probeRunner {
	return &probeRunner{
		logger:  logger,
		delay:   delay,
		pending: map[string]*probeHandle{},
	}
}

// Schedule fires probe after the configured delay unless superseded or
// canceled first.
func (self *probeRunner) Schedule(workspaceId string, probe func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(context.Background())
	handle := &probeHandle{cancel: cancel}

	self.mu.Lock()
	if previous, ok := self.pending[workspaceId]; ok {
		previous.cancel()
	}
	self.pending[workspaceId] = handle
	self.mu.Unlock()

	self.wg.Add(1)
	go func() {
		defer self.wg.Done()
		defer self.clear(workspaceId, handle)

		select {
		case <-ctx.Done():
			return
		case <-time.After(self.delay):
		}
		probe(ctx)
	}()
}

// Cancel drops the pending probe of a workspace, if any.
func (self *probeRunner) Cancel(workspaceId string) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if handle, ok := self.pending[workspaceId]; ok {
		handle.cancel()
		delete(self.pending, workspaceId)
	}
}

func (self *probeRunner) clear(workspaceId string, handle *probeHandle) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if current, ok := self.pending[workspaceId]; ok && current == handle {
		delete(self.pending, workspaceId)
	}
}

// wait blocks until every scheduled probe goroutine has returned. Used
// by tests only.
func (self *probeRunner) wait() {
	self.wg.Wait()
}
