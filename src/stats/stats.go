package stats

import "reflect"
import "sync/atomic"
import "strconv"
import "strings"
import "unsafe"

import "sv39kernel/src/hart"

const Stats = false
const Timing = false

var Nirqs [100]int
var Irqs int

/// Rdtsc returns the current cycle count when enabled, read from the
/// `time` CSR via hart.Rdtime rather than the teacher's patched-runtime
/// runtime.Rdtsc (x86's RDTSC has no riscv64 equivalent instruction; the
/// `time` CSR is the architectural substitute spec.md's glossary names).
func Rdtsc() uint64 {
	if Stats {
		return hart.Rdtime()
	} else {
		return 0
	}
}

/// Counter_t is a statistical counter.
type Counter_t int64

/// Cycles_t holds a cycle count.
type Cycles_t int64

/// Inc increments the counter.
func (c *Counter_t) Inc() {
	if Stats {
		n := (*int64)(unsafe.Pointer(c))
		atomic.AddInt64(n, 1)
	}
}

/// Get reads the counter's current value. Always 0 when Stats is off,
/// consistent with Inc being a no-op in that build.
func (c *Counter_t) Get() int64 {
	n := (*int64)(unsafe.Pointer(c))
	return atomic.LoadInt64(n)
}

/// Add adds elapsed cycles to the counter.
func (c *Cycles_t) Add(m uint64) {
	if Timing {
		n := (*int64)(unsafe.Pointer(c))
		atomic.AddInt64(n, int64(Rdtsc()-m))
	}
}

/// Stats2String converts a struct of counters to a printable string.
func Stats2String(st interface{}) string {
	if !Stats {
		return ""
	}
	v := reflect.ValueOf(st)
	s := ""
	for i := 0; i < v.NumField(); i++ {
		t := v.Field(i).Type().String()
		if strings.HasSuffix(t, "Counter_t") {
			n := v.Field(i).Interface().(Counter_t)
			s += "\n\t#" + v.Type().Field(i).Name + ": " + strconv.FormatInt(int64(n), 10)
		}
		if strings.HasSuffix(t, "Cycles_t") {
			n := v.Field(i).Interface().(Cycles_t)
			s += "\n\t#" + v.Type().Field(i).Name + ": " + strconv.FormatInt(int64(n), 10)
		}

	}
	return s + "\n"
}
