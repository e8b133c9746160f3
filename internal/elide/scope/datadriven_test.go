package scope

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/lockelide/internal/elide/elidetest"
	"github.com/kolkov/lockelide/internal/elide/fallback"
	"github.com/kolkov/lockelide/internal/elide/htm"
)

// TestEntryProtocol is a data-driven test of the entry and exit protocol
// against a scripted transactional unit. It offers one command:
//
//	enter [max-retries=N] [abort-code=N] [held=(true,false,...)]
//	started
//	explicit <code>
//	conflict [retry]
//	capacity
//	----
//
// Each input line is the result of one Begin; once the script is exhausted
// Begin reports started. held scripts the answers of IsLocked. The output
// is the trace of unit and lock calls, the path taken, the exit, and a
// summary of the counters.
func TestEntryProtocol(t *testing.T) {
	datadriven.Walk(t, "testdata", func(t *testing.T, path string) {
		datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
			switch d.Cmd {
			case "enter":
				return runEnter(t, d)
			default:
				return fmt.Sprintf("unknown command: %s", d.Cmd)
			}
		})
	})
}

func runEnter(t *testing.T, d *datadriven.TestData) string {
	opts := []Option{WithName("dd")}
	var held []bool
	for _, arg := range d.CmdArgs {
		switch arg.Key {
		case "max-retries":
			var n int
			d.ScanArgs(t, arg.Key, &n)
			opts = append(opts, WithMaxRetries(n))
		case "abort-code":
			var code int
			d.ScanArgs(t, arg.Key, &code)
			opts = append(opts, WithAbortCode(uint8(code)))
		case "held":
			for _, v := range arg.Vals {
				b, err := strconv.ParseBool(v)
				require.NoError(t, err)
				held = append(held, b)
			}
		default:
			t.Fatalf("unknown argument %q", arg.Key)
		}
	}

	var script []htm.Status
	for _, line := range strings.Split(d.Input, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			script = append(script, parseStatus(t, line))
		}
	}

	trace := &elidetest.Trace{}
	unit := elidetest.NewScriptedUnit(trace, script...)
	lock := elidetest.NewCountingLock(trace, &fallback.Mutex{}, held...)
	obs := &countingObserver{}
	e := MustNew(append(opts, WithUnit(unit), WithObserver(obs))...)

	s := e.Enter(lock)
	trace.Add("path: %s", s.path)
	s.Exit()

	begins, _, ends := unit.Counts()
	fellBack := "none"
	if len(obs.reasons) > 0 {
		fellBack = string(obs.reasons[0])
	}
	return fmt.Sprintf("%s\nbegins=%d ends=%d locks=%d unlocks=%d fences=%d fallback=%s",
		trace, begins, ends, lock.Locks(), lock.Unlocks(), obs.fences, fellBack)
}

func parseStatus(t *testing.T, line string) htm.Status {
	fields := strings.Fields(line)
	switch fields[0] {
	case "started":
		return htm.Started
	case "explicit":
		require.Len(t, fields, 2, "explicit needs a code")
		code, err := strconv.ParseUint(fields[1], 0, 8)
		require.NoError(t, err)
		return htm.Explicit(uint8(code))
	case "conflict":
		return htm.Conflict(len(fields) > 1 && fields[1] == "retry")
	case "capacity":
		return htm.Capacity()
	default:
		t.Fatalf("unknown status %q", line)
		return 0
	}
}

// countingObserver records scope events for assertions.
type countingObserver struct {
	mu        sync.Mutex
	aborts    []htm.Status
	fences    int
	commits   int
	reasons   []FallbackReason
	lastScope string
}

var _ Observer = (*countingObserver)(nil)

func (o *countingObserver) Aborted(name string, s htm.Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.aborts = append(o.aborts, s)
	o.lastScope = name
}

func (o *countingObserver) Fenced(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fences++
	o.lastScope = name
}

func (o *countingObserver) Committed(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.commits++
	o.lastScope = name
}

func (o *countingObserver) FellBack(name string, reason FallbackReason) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reasons = append(o.reasons, reason)
	o.lastScope = name
}
