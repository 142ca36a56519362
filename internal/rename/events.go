package rename

import (
	"context"
	"time"

	"vaultnorm/internal/errors"
	"vaultnorm/internal/log"
	"vaultnorm/internal/vault"
)

// Attach subscribes the coordinator to n and returns the unsubscribe func.
func (c *Coordinator) Attach(n vault.Notifier) func() {
	return n.Subscribe(c.HandleEvent)
}

// HandleEvent reacts to a created or renamed item. Nothing happens while
// renaming is disabled. The reaction is delayed by the configured debounce
// so the host can finish writing; the item is then re-read from storage.
// Events for paths with a rename in progress are dropped, not queued.
func (c *Coordinator) HandleEvent(ev vault.Event) {
	if ev.Item == nil || c.closed.Load() {
		return
	}
	snap := c.snapshot()
	if !snap.settings.Enabled {
		return
	}
	p := ev.Item.Path
	if c.inflight.has(p) {
		log.LogWithFields(log.F("path", p), log.F("op", ev.Op.String())).Debug("Ignoring event for item being renamed")
		return
	}

	c.lifecycle.Lock()
	if c.closed.Load() {
		c.lifecycle.Unlock()
		return
	}
	c.pending.Add(1)
	c.lifecycle.Unlock()

	go func() {
		defer c.pending.Done()
		if d := snap.settings.Watch.Debounce; d > 0 {
			time.Sleep(d)
		}
		c.react(p)
	}()
}

func (c *Coordinator) react(p string) {
	if c.closed.Load() || !c.snapshot().settings.Enabled || c.inflight.has(p) {
		return
	}
	item, err := c.store.Get(p)
	if err != nil {
		if !errors.IsFileNotFound(err) {
			log.LogWithError(err).Warn("Could not read item after event")
		}
		return
	}
	c.Standardize(context.Background(), item)
}

// Wait blocks until every scheduled event reaction has finished.
func (c *Coordinator) Wait() {
	c.pending.Wait()
}

// Close stops reacting to events and waits for reactions in progress.
func (c *Coordinator) Close() {
	c.lifecycle.Lock()
	c.closed.Store(true)
	c.lifecycle.Unlock()
	c.pending.Wait()
}
