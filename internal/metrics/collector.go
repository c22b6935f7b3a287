// Package metrics is a small counter registry rendered in Prometheus text
// format, without the client_golang dependency.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Collector is the global metrics collector.
var Collector = NewCollector()

type RegistryCollector struct {
	counters  sync.Map // name -> *Counter
	startTime time.Time
}

func NewCollector() *RegistryCollector {
	return &RegistryCollector{startTime: time.Now()}
}

// Uptime returns how long the collector has been running.
func (c *RegistryCollector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// Counter is a monotonically increasing counter.
type Counter struct {
	name  string
	help  string
	value atomic.Int64
}

func (c *Counter) Inc()         { c.value.Add(1) }
func (c *Counter) Add(n int64)  { c.value.Add(n) }
func (c *Counter) Value() int64 { return c.value.Load() }

// Counter returns or creates a counter with the given name.
func (c *RegistryCollector) Counter(name, help string) *Counter {
	if v, ok := c.counters.Load(name); ok {
		return v.(*Counter)
	}
	ctr := &Counter{name: name, help: help}
	actual, _ := c.counters.LoadOrStore(name, ctr)
	return actual.(*Counter)
}

// Render returns all metrics in Prometheus text exposition format.
func (c *RegistryCollector) Render() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# HELP ayaka_uptime_seconds Time since start in seconds\n")
	fmt.Fprintf(&sb, "# TYPE ayaka_uptime_seconds gauge\n")
	fmt.Fprintf(&sb, "ayaka_uptime_seconds %d\n", int64(c.Uptime().Seconds()))

	var names []string
	c.counters.Range(func(key, _ any) bool {
		names = append(names, key.(string))
		return true
	})
	sort.Strings(names)

	for _, name := range names {
		v, _ := c.counters.Load(name)
		ctr := v.(*Counter)
		fmt.Fprintf(&sb, "# HELP %s %s\n", ctr.name, ctr.help)
		fmt.Fprintf(&sb, "# TYPE %s counter\n", ctr.name)
		fmt.Fprintf(&sb, "%s %d\n", ctr.name, ctr.Value())
	}
	return sb.String()
}

// Pre-defined metrics used across the application.
var (
	MessagesTotal      = Collector.Counter("ayaka_messages_total", "Total inbound messages processed")
	RepliesTotal       = Collector.Counter("ayaka_replies_total", "Total generated replies sent")
	CommandsTotal      = Collector.Counter("ayaka_commands_total", "Total bot commands handled")
	GenerationFails    = Collector.Counter("ayaka_generation_failures_total", "Total generation backend failures")
	TurnsPurgedTotal   = Collector.Counter("ayaka_turns_purged_total", "Total conversation turns dropped by retention")
	BackupsTotal       = Collector.Counter("ayaka_backups_total", "Total database backups taken")
	QuizAnswersTotal   = Collector.Counter("ayaka_quiz_answers_total", "Total quiz answers graded")
	ModulesServedTotal = Collector.Counter("ayaka_modules_served_total", "Total module content deliveries")
)
