package core

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/encodeous/beacon/state"
	"github.com/olekukonko/tablewriter"
)

// TableSink receives everything the beacon module wants to display
type TableSink interface {
	// Table is called with the ranked neighbour table after every beacon
	Table(node state.Addr, rows []state.Neighbour)
	// Evicted is called for every neighbour that was removed from the table
	Evicted(node state.Addr, neigh state.Addr)
}

// nodes in the same process share stdout
var outMu sync.Mutex

// LogSink prints neighbour tables to Out and eviction notices to Log
type LogSink struct {
	Log *slog.Logger
	Out io.Writer
}

func (l *LogSink) Table(node state.Addr, rows []state.Neighbour) {
	if l.Out == nil {
		return
	}
	buf := &bytes.Buffer{}
	WriteTable(buf, node, rows)
	outMu.Lock()
	defer outMu.Unlock()
	_, _ = l.Out.Write(buf.Bytes())
}

func (l *LogSink) Evicted(node state.Addr, neigh state.Addr) {
	l.Log.Info("connection with node has been disconnected", "node", neigh.String())
}

// WriteTable renders the neighbour table of node in rank order
func WriteTable(w io.Writer, node state.Addr, rows []state.Neighbour) {
	_, _ = fmt.Fprintf(w, "Neighbour table of %s:\n", node)
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "  (none)")
		return
	}
	data := make([][]string, 0, len(rows))
	for _, n := range rows {
		data = append(data, []string{
			n.Addr.String(),
			strconv.Itoa(int(n.RSSI)),
			strconv.Itoa(n.PRR),
			strconv.Itoa(n.Liveness),
		})
	}
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"ADDR", "RSSI", "PRR", "LIVENESS"})
	table.AppendBulk(data)
	table.Render()
}
