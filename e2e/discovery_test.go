//go:build e2e

package e2e

import (
	"fmt"
	"regexp"
	"testing"
)

func TestDiscovery(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}
	t.Parallel()

	h := NewHarness(t)
	nodes := h.Spawn(10, 11, 12)

	for name := range nodes {
		for other, cfg := range nodes {
			if other == name {
				continue
			}
			h.WaitForLog(name, fmt.Sprintf("new neighbour node=%s", cfg.Id))
			h.WaitForTable(name, fmt.Sprintf(`(?m)^\s*%s\s+-50\s+\d+\s+\d+\s*$`, regexp.QuoteMeta(cfg.Id.String())))
		}
	}
}

func TestDisconnect(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}
	t.Parallel()

	h := NewHarness(t)
	nodes := h.Spawn(20, 21)
	h.WaitForLog("node20", fmt.Sprintf("new neighbour node=%s", nodes["node21"].Id))

	h.StopNode("node21")
	// three prune ticks of silence
	h.WaitForLog("node20", fmt.Sprintf("connection with node has been disconnected node=%s", nodes["node21"].Id))
}

func TestTableCapacity(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}
	t.Parallel()

	h := NewHarness(t)
	h.Spawn(30, 31, 32, 33, 34, 35, 36)

	// seven nodes, every table holds five of the six others and refuses the last
	h.WaitForLog("node30", "neighbour table full, ignoring node")
}
