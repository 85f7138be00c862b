package kxirc

import (
	"sort"
	"strings"
	"sync"
	"time"

	"git.sr.ht/~kx/kxirc/irc"
)

// TargetEntry is a conversation known to the client.
type TargetEntry struct {
	Name         string
	Kind         irc.TargetKind
	LastActivity time.Time // zero until a message is seen.
}

// TargetList tracks conversations by case-insensitive name. It is safe for
// concurrent use.
type TargetList struct {
	mu      sync.Mutex
	targets map[string]*TargetEntry
}

func NewTargetList() *TargetList {
	return &TargetList{
		targets: map[string]*TargetEntry{},
	}
}

// Add registers name without recording activity.
func (l *TargetList) Add(name string) {
	l.Touch(name, time.Time{})
}

// Touch registers name and records activity at the given time.
func (l *TargetList) Touch(name string, at time.Time) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	key := strings.ToLower(name)

	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.targets[key]
	if !ok {
		t = &TargetEntry{
			Name: name,
			Kind: irc.Classify(name),
		}
		l.targets[key] = t
	}
	if at.After(t.LastActivity) {
		t.LastActivity = at
	}
}

// Entries returns the known targets, most recently active first.
func (l *TargetList) Entries() []TargetEntry {
	l.mu.Lock()
	entries := make([]TargetEntry, 0, len(l.targets))
	for _, t := range l.targets {
		entries = append(entries, *t)
	}
	l.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.LastActivity.Equal(b.LastActivity) {
			return a.LastActivity.After(b.LastActivity)
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
	return entries
}

// ByKind returns Entries grouped by kind.
func (l *TargetList) ByKind() map[irc.TargetKind][]TargetEntry {
	groups := map[irc.TargetKind][]TargetEntry{}
	for _, t := range l.Entries() {
		groups[t.Kind] = append(groups[t.Kind], t)
	}
	return groups
}
