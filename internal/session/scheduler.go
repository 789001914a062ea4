package session

import (
	"sync"
	"time"
)

// Scheduler runs callbacks later. Every returned cancel func is idempotent;
// once it returns, the callback is not invoked again except for a call that
// was already in progress.
type Scheduler interface {
	Every(d time.Duration, fn func()) (cancel func())
	After(d time.Duration, fn func()) (cancel func())
}

type realScheduler struct{}

func (realScheduler) Every(d time.Duration, fn func()) func() {
	t := time.NewTicker(d)
	done := make(chan struct{})
	go func() {
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				// A tick can race with cancel; prefer cancel.
				select {
				case <-done:
					return
				default:
				}
				fn()
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

func (realScheduler) After(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}
