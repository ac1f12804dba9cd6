// Package audit keeps an append-only, hash-chained record of vault
// lifecycle events. Each entry's hash covers the previous hash, so any
// rewrite of history breaks verification.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// Lifecycle actions recorded by the server.
const (
	ActionSetup          = "vault.setup"
	ActionUnlock         = "vault.unlock"
	ActionUnlockDenied   = "vault.unlock.denied"
	ActionLock           = "vault.lock"
	ActionReset          = "vault.reset"
	ActionPasswordChange = "vault.password_change"
)

type Event struct {
	TS     time.Time `json:"ts"`
	Org    string    `json:"org"`
	Action string    `json:"action"`
	Hash   string    `json:"hash"`
}

type Log struct {
	mu     sync.Mutex
	events []Event
}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Append(org, action string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := ""
	if n := len(l.events); n > 0 {
		prev = l.events[n-1].Hash
	}
	ev := Event{TS: time.Now().UTC(), Org: org, Action: action}
	ev.Hash = chainHash(prev, ev)
	l.events = append(l.events, ev)
}

// Verify walks the chain and reports the first broken link, if any.
func (l *Log) Verify() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := ""
	for i, ev := range l.events {
		want := chainHash(prev, ev)
		if ev.Hash != want {
			return fmt.Errorf("audit chain broken at entry %d", i)
		}
		prev = ev.Hash
	}
	return nil
}

// Events returns a copy of the log, oldest first.
func (l *Log) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

func chainHash(prev string, ev Event) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%s|%s", prev, ev.TS.UnixNano(), ev.Org, ev.Action)
	return hex.EncodeToString(h.Sum(nil))
}
