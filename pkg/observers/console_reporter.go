package observers

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/anggasct/crossroads"
)

// ConsoleReporter prints one "<in> <out> <id>" line per crossing
type ConsoleReporter struct {
	out   io.Writer
	mutex sync.Mutex
}

// NewConsoleReporter creates a reporter writing to w, or to stdout when w is nil
func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleReporter{out: w}
}

// OnCrossing prints the record. It runs while the vehicle holds its
// quadrants, so lines appear in crossing order.
func (r *ConsoleReporter) OnCrossing(rec crossroads.Record) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	fmt.Fprintln(r.out, rec.String())
}
