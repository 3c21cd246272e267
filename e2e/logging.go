//go:build e2e

package e2e

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/testcontainers/testcontainers-go"
)

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func StripAnsi(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

type LogSource string

const (
	SourceStdout LogSource = "stdout"
	SourceStderr LogSource = "stderr"
)

type LogSubscription struct {
	Node    string
	Source  LogSource
	Pattern string
	Regex   *regexp.Regexp
	MatchCh chan struct{}
}

type LogManager struct {
	mu          sync.RWMutex
	subscribers []*LogSubscription
	// everything received so far, so a wait also matches lines that arrived before it started
	history   map[string]map[LogSource]*strings.Builder
	historyMu sync.RWMutex
}

func NewLogManager() *LogManager {
	return &LogManager{
		subscribers: make([]*LogSubscription, 0),
		history:     make(map[string]map[LogSource]*strings.Builder),
	}
}

func (m *LogManager) matches(sub *LogSubscription, content string) bool {
	if sub.Regex != nil {
		return sub.Regex.MatchString(content)
	}
	return sub.Pattern != "" && strings.Contains(content, sub.Pattern)
}

func (m *LogManager) Accept(node string, source LogSource, content string) {
	m.historyMu.Lock()
	if _, ok := m.history[node]; !ok {
		m.history[node] = make(map[LogSource]*strings.Builder)
	}
	if _, ok := m.history[node][source]; !ok {
		m.history[node][source] = &strings.Builder{}
	}
	m.history[node][source].WriteString(content)
	fullContent := m.history[node][source].String()
	m.historyMu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		if sub.Node != node || sub.Source != source {
			continue
		}
		if m.matches(sub, content) || m.matches(sub, fullContent) {
			select {
			case sub.MatchCh <- struct{}{}:
			default:
			}
		}
	}
}

func (m *LogManager) Subscribe(node string, source LogSource, pattern string, isRegex bool) (*LogSubscription, error) {
	sub := &LogSubscription{
		Node:    node,
		Source:  source,
		MatchCh: make(chan struct{}, 1),
	}
	if isRegex {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
		sub.Regex = re
	} else {
		sub.Pattern = pattern
	}

	m.mu.Lock()
	m.subscribers = append(m.subscribers, sub)
	m.mu.Unlock()

	// Check history immediately
	m.historyMu.RLock()
	defer m.historyMu.RUnlock()
	if h, ok := m.history[node]; ok {
		if b, ok := h[source]; ok {
			if m.matches(sub, b.String()) {
				sub.MatchCh <- struct{}{}
			}
		}
	}

	return sub, nil
}

func (m *LogManager) Unsubscribe(sub *LogSubscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.subscribers {
		if s == sub {
			m.subscribers = slices.Delete(m.subscribers, i, i+1)
			break
		}
	}
}

type UnifiedLogConsumer struct {
	Node    string
	Manager *LogManager
}

func (c *UnifiedLogConsumer) Accept(l testcontainers.Log) {
	source := SourceStdout
	if l.LogType == testcontainers.StderrLog {
		source = SourceStderr
	}
	content := StripAnsi(string(l.Content))
	fmt.Printf("[%s:%s] %s", c.Node, source, content)
	c.Manager.Accept(c.Node, source, content)
}
