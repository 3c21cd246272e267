//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/netip"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/docker/docker/api/types/network"
	"github.com/encodeous/beacon/state"
	"github.com/goccy/go-yaml"
	"github.com/testcontainers/testcontainers-go"
	tcnetwork "github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	ImageName   = "beacon-debug:latest"
	WaitTimeout = 2 * time.Minute
)

// NetworkAllocator hands out a distinct /24 to every harness so tests can run in parallel
type NetworkAllocator struct {
	next atomic.Uint32
}

func (a *NetworkAllocator) Allocate() netip.Prefix {
	n := a.next.Add(1)
	return netip.PrefixFrom(netip.AddrFrom4([4]byte{172, 29, byte(n), 0}), 24)
}

var GlobalNetworkAllocator = &NetworkAllocator{}

type Harness struct {
	t          *testing.T
	mu         sync.Mutex
	ctx        context.Context
	Network    *testcontainers.DockerNetwork
	Nodes      map[string]testcontainers.Container
	LogManager *LogManager
	RootDir    string
	Subnet     netip.Prefix
}

// projectRoot walks up from the working directory to the directory holding go.mod
func projectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find project root")
		}
		dir = parent
	}
}

// NewHarness creates a test harness with a unique subnet
func NewHarness(t *testing.T) *Harness {
	ctx := context.Background()
	rootDir, err := projectRoot()
	if err != nil {
		t.Fatal(err)
	}

	subnet := GlobalNetworkAllocator.Allocate()
	t.Logf("Allocated subnet: %s", subnet)

	newNetwork, err := tcnetwork.New(ctx,
		tcnetwork.WithAttachable(),
		tcnetwork.WithDriver("bridge"),
		tcnetwork.WithIPAM(&network.IPAM{
			Driver: "default",
			Config: []network.IPAMConfig{
				{
					Subnet:  subnet.String(),
					Gateway: GetIP(subnet, 1).String(),
				},
			},
		}))
	if err != nil {
		t.Fatal(err)
	}
	h := &Harness{
		t:          t,
		ctx:        ctx,
		Network:    newNetwork,
		Nodes:      make(map[string]testcontainers.Container),
		LogManager: NewLogManager(),
		RootDir:    rootDir,
		Subnet:     subnet,
	}
	t.Cleanup(func() {
		h.Cleanup()
	})
	return h
}

// GetIP returns the host with the given index inside subnet
func GetIP(subnet netip.Prefix, host int) netip.Addr {
	b := subnet.Masked().Addr().As4()
	b[3] = byte(host)
	return netip.AddrFrom4(b)
}

// Broadcast is the directed broadcast address of the harness subnet
func (h *Harness) Broadcast() netip.AddrPort {
	return netip.AddrPortFrom(GetIP(h.Subnet, 255), uint16(state.DefaultPort))
}

// NodeConfig builds the config of the node at the given host index. Its link address is derived
// from the container IP, the same way receivers derive it from the source of a beacon.
func (h *Harness) NodeConfig(host int) state.NodeCfg {
	ip := GetIP(h.Subnet, host)
	return state.NodeCfg{
		Id:             state.AddrFromIP(ip),
		BeaconInterval: time.Second,
		PruneInterval:  2 * time.Second,
		UDP: &state.UDPCfg{
			Bind:      netip.AddrPortFrom(netip.IPv4Unspecified(), uint16(state.DefaultPort)),
			Broadcast: h.Broadcast(),
			RSSI:      -50,
		},
	}
}

type NodeSpec struct {
	Name           string
	IP             netip.Addr
	NodeConfigPath string
}

func (h *Harness) StartNodes(specs ...NodeSpec) {
	var wg sync.WaitGroup
	wg.Add(len(specs))
	for _, spec := range specs {
		go func(s NodeSpec) {
			defer wg.Done()
			h.StartNode(s)
		}(spec)
	}
	wg.Wait()
}

func (h *Harness) StartNode(spec NodeSpec) testcontainers.Container {
	h.t.Logf("Starting node %s at %s", spec.Name, spec.IP)
	req := testcontainers.ContainerRequest{
		Image:    ImageName,
		Networks: []string{h.Network.Name},
		NetworkAliases: map[string][]string{
			h.Network.Name: {spec.Name},
		},
		Files: []testcontainers.ContainerFile{
			{
				HostFilePath:      spec.NodeConfigPath,
				ContainerFilePath: "/app/config/node.yaml",
				FileMode:          0644,
			},
		},
		WaitingFor: wait.ForLog("node started").WithStartupTimeout(30 * time.Second),
		EndpointSettingsModifier: func(m map[string]*network.EndpointSettings) {
			if s, ok := m[h.Network.Name]; ok {
				s.IPAMConfig = &network.EndpointIPAMConfig{
					IPv4Address: spec.IP.String(),
				}
			}
		},
		LogConsumerCfg: &testcontainers.LogConsumerConfig{
			Consumers: []testcontainers.LogConsumer{
				&UnifiedLogConsumer{Node: spec.Name, Manager: h.LogManager},
			},
		},
		Name: h.t.Name() + "-" + spec.Name,
	}
	cont, err := testcontainers.GenericContainer(h.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		h.t.Fatalf("failed to start container %s: %v", spec.Name, err)
	}
	h.mu.Lock()
	h.Nodes[spec.Name] = cont
	h.mu.Unlock()
	return cont
}

// StopNode powers a node off, its neighbours stop hearing its beacons
func (h *Harness) StopNode(nodeName string) {
	h.mu.Lock()
	c, ok := h.Nodes[nodeName]
	h.mu.Unlock()
	if !ok {
		h.t.Fatalf("node %s not found", nodeName)
	}
	timeout := 5 * time.Second
	if err := c.Stop(h.ctx, &timeout); err != nil {
		h.t.Fatalf("failed to stop container %s: %v", nodeName, err)
	}
}

// WaitForLog waits for a log line, logs are written to stderr
func (h *Harness) WaitForLog(nodeName string, pattern string) {
	h.waitFor(nodeName, SourceStderr, pattern, false)
}

// WaitForTable waits for a neighbour table row, tables are written to stdout
func (h *Harness) WaitForTable(nodeName string, pattern string) {
	h.waitFor(nodeName, SourceStdout, pattern, true)
}

func (h *Harness) waitFor(nodeName string, source LogSource, pattern string, isRegex bool) {
	sub, err := h.LogManager.Subscribe(nodeName, source, pattern, isRegex)
	if err != nil {
		h.t.Fatalf("failed to subscribe: %v", err)
	}
	defer h.LogManager.Unsubscribe(sub)

	select {
	case <-sub.MatchCh:
		return
	case <-time.After(WaitTimeout):
		h.PrintLogs(nodeName)
		h.t.Fatalf("timed out waiting for %s pattern %q in node %s", source, pattern, nodeName)
	case <-h.ctx.Done():
		h.t.Fatal("context canceled")
	}
}

func (h *Harness) Cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for name, c := range h.Nodes {
		if err := c.Terminate(h.ctx); err != nil {
			h.t.Logf("failed to terminate container %s: %v", name, err)
		}
	}
	if err := h.Network.Remove(context.Background()); err != nil {
		h.t.Logf("failed to remove network: %v", err)
	}
}

func (h *Harness) PrintLogs(nodeName string) {
	h.mu.Lock()
	container, ok := h.Nodes[nodeName]
	h.mu.Unlock()
	if !ok {
		h.t.Logf("node %s not found for logging", nodeName)
		return
	}
	r, err := container.Logs(h.ctx)
	if err != nil {
		h.t.Logf("failed to get logs for %s: %v", nodeName, err)
		return
	}
	buf := new(bytes.Buffer)
	_, _ = io.Copy(buf, r)
	h.t.Logf("Logs for %s:\n%s", nodeName, StripAnsi(buf.String()))
}

// SetupTestDir creates a directory for the current test run
func (h *Harness) SetupTestDir() string {
	dir := filepath.Join(h.RootDir, "e2e", "runs", h.t.Name())
	_ = os.RemoveAll(dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		h.t.Fatal(err)
	}
	return dir
}

// WriteConfig marshals the config to YAML and writes it to the specified directory with the given filename
func (h *Harness) WriteConfig(dir, filename string, cfg any) string {
	path := filepath.Join(dir, filename)
	data, err := yaml.Marshal(cfg)
	if err != nil {
		h.t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		h.t.Fatal(err)
	}
	return path
}

// Spawn writes a config for every host index and starts the nodes, named node<host>
func (h *Harness) Spawn(hosts ...int) map[string]state.NodeCfg {
	dir := h.SetupTestDir()
	res := make(map[string]state.NodeCfg)
	specs := make([]NodeSpec, 0, len(hosts))
	for _, host := range hosts {
		name := fmt.Sprintf("node%d", host)
		cfg := h.NodeConfig(host)
		res[name] = cfg
		specs = append(specs, NodeSpec{
			Name:           name,
			IP:             GetIP(h.Subnet, host),
			NodeConfigPath: h.WriteConfig(dir, name+".yaml", cfg),
		})
	}
	h.StartNodes(specs...)
	return res
}
