// Package progress renders a terminal progress bar for tree builds. Safe
// for concurrent use; the builder reports entries from multiple goroutines.
package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type Bar struct {
	mu         sync.Mutex
	total      int64
	current    int64
	width      int
	writer     io.Writer
	label      string
	enabled    bool
	lastUpdate time.Time
}

func New(total int64) *Bar {
	return &Bar{
		total:   total,
		width:   50,
		writer:  os.Stderr,
		enabled: total > 0,
	}
}

// Increment records one completed entry, labeling the bar with the entry's
// directory.
func (b *Bar) Increment(path string) {
	if !b.enabled {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.current++
	b.label = filepath.Base(filepath.Dir(path))

	// Throttle renders to reduce flickering
	now := time.Now()
	if now.Sub(b.lastUpdate) > 100*time.Millisecond || b.current >= b.total {
		b.lastUpdate = now
		b.render()
	}
}

// render must be called with mu held.
func (b *Bar) render() {
	current := b.current
	if current > b.total {
		current = b.total
	}
	percent := float64(current) / float64(b.total) * 100
	filled := int(float64(b.width) * float64(current) / float64(b.total))
	if filled > b.width {
		filled = b.width
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", b.width-filled)

	label := b.label
	if label != "" {
		label = " | " + label
	}

	fmt.Fprintf(b.writer, "\r\033[K[%s] %3d%% (%d/%d)%s",
		bar, int(percent), current, b.total, label)
}

func (b *Bar) Finish() {
	if !b.enabled {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = b.total
	b.label = ""
	b.render()
	fmt.Fprintln(b.writer)
}
