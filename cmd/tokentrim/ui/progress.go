package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// ProgressBar shows progress of an operation on stderr. It renders nothing
// when stderr is not a terminal.
type ProgressBar struct {
	total        int
	current      int
	currentBytes int64
	startTime    time.Time
	mu           sync.Mutex
	width        int
	lastPrint    time.Time
	out          io.Writer
	enabled      bool
}

// NewProgressBar creates a progress bar for total items
func NewProgressBar(total int) *ProgressBar {
	return &ProgressBar{
		total:     total,
		startTime: time.Now(),
		width:     40,
		lastPrint: time.Now(),
		out:       os.Stderr,
		enabled:   IsTTY(os.Stderr),
	}
}

// IsTTY checks if the given file is a terminal
func IsTTY(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// AddBytes increments current progress and adds bytes
func (pb *ProgressBar) AddBytes(increment int, bytes int64) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.current += increment
	pb.currentBytes += bytes
	pb.print()
}

// Finish completes the progress bar
func (pb *ProgressBar) Finish() {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.current = pb.total
	pb.lastPrint = time.Time{}
	pb.print()
	if pb.enabled {
		fmt.Fprintf(pb.out, "\n")
	}
}

// print renders the progress bar
func (pb *ProgressBar) print() {
	if !pb.enabled {
		return
	}
	if time.Since(pb.lastPrint) < 100*time.Millisecond && pb.current < pb.total {
		return
	}
	pb.lastPrint = time.Now()

	percent := 0.0
	filled := 0
	if pb.total > 0 {
		percent = float64(pb.current) / float64(pb.total) * 100
		filled = min(int(float64(pb.width)*float64(pb.current)/float64(pb.total)), pb.width)
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", pb.width-filled)

	elapsed := time.Since(pb.startTime)
	mbPerSec := 0.0
	if elapsed.Seconds() > 0 {
		mbPerSec = float64(pb.currentBytes) / (1000 * 1000) / elapsed.Seconds()
	}

	status := "Done    "
	if pb.current < pb.total {
		status = fmt.Sprintf("%s elapsed ", formatElapsed(elapsed))
	}

	fmt.Fprintf(pb.out, "\r  [%s] %6.2f%% | %d/%d files | %.1f MB/s | %s",
		bar, percent, pb.current, pb.total, mbPerSec, status)
}

func formatElapsed(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
