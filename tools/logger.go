package tools

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
)

var isEnabled = true
var printTimestamp = true

func EnableLogger() {
	isEnabled = true
}

func DisableLogger() {
	isEnabled = false
}

func EnableLoggerTimestamp() {
	printTimestamp = true
}

func DisableLoggerTimestamp() {
	printTimestamp = false
}

func LogOutput(val ...interface{}) {
	if isEnabled {
		if printTimestamp {
			val = append([]interface{}{"[" + time.Now().Format("2006-01-02 15.04:05.000") + "]"}, val...)
		}
		glog.Infoln(val...)
	}
}

// LogProgress logs the advancement of a long running step every 10%. It is safe for concurrent use.
type LogProgress struct {
	name string

	mu         sync.Mutex
	lastDecile int
}

func NewLogProgress(name string) *LogProgress {
	return &LogProgress{name: name, lastDecile: -1}
}

func (p *LogProgress) Report(done, total int) {
	if total <= 0 {
		return
	}
	decile := 10 * done / total
	if decile > 10 {
		decile = 10
	}

	p.mu.Lock()
	if decile <= p.lastDecile {
		p.mu.Unlock()
		return
	}
	p.lastDecile = decile
	p.mu.Unlock()

	LogOutput(fmt.Sprintf("> %s progress: %d%%", p.name, decile*10))
}
