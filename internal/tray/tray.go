// Package tray provides a system tray interface for starting and stopping
// recordings.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/mudra/internal/recording"
)

// Tray represents the system tray application.
type Tray struct {
	onRecord func(d recording.Duration)
	onStop   func()
	onOpen   func()
	onQuit   func()
	status   string
	// recordable is false once recording can never succeed.
	recordable bool
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuStatus *systray.MenuItem
	menuStop   *systray.MenuItem
	menuRecord []*systray.MenuItem
}

// New creates a new Tray instance.
func New() *Tray {
	return &Tray{
		status:     statusText(recording.Info{Status: recording.StatusIdle}),
		recordable: true,
	}
}

// OnRecord sets the callback invoked when a record menu item is clicked.
func (t *Tray) OnRecord(fn func(d recording.Duration)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRecord = fn
}

// OnStop sets the callback invoked when the stop menu item is clicked.
func (t *Tray) OnStop(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStop = fn
}

// OnOpen sets the callback invoked when the viewer menu item is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra hand recording")

	t.mu.Lock()
	t.menuStatus = systray.AddMenuItem(t.status, "Recording status")
	t.menuStatus.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	presets := make([]*systray.MenuItem, len(recording.Presets))
	for i, d := range recording.Presets {
		presets[i] = systray.AddMenuItem("Record "+d.String(), "Record for "+d.String())
	}
	menuManual := systray.AddMenuItem("Record (manual)", "Record until stopped")

	t.mu.Lock()
	t.menuRecord = append(presets[:len(presets):len(presets)], menuManual)
	t.applyRecordable()
	t.menuStop = systray.AddMenuItem("Stop", "Stop recording")
	t.menuStop.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Viewer...", "Open the viewer in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	for i, item := range presets {
		go func(item *systray.MenuItem, d recording.Duration) {
			for range item.ClickedCh {
				t.handleRecord(d)
			}
		}(item, recording.Presets[i])
	}

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-menuManual.ClickedCh:
				t.handleRecord(recording.Manual)
			case <-t.menuStop.ClickedCh:
				t.handleStop()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

func (t *Tray) handleRecord(d recording.Duration) {
	t.mu.RLock()
	callback := t.onRecord
	recordable := t.recordable
	t.mu.RUnlock()

	if !recordable {
		return
	}

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(d)
	}
}

func (t *Tray) handleStop() {
	t.mu.RLock()
	callback := t.onStop
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// Quit ends the tray event loop started by Run.
func Quit() {
	systray.Quit()
}

// SetStatus updates the status line and enables Stop while recording.
func (t *Tray) SetStatus(info recording.Info) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = statusText(info)
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(t.status)
	}
	if t.menuStop != nil {
		if info.Status == recording.StatusRecording {
			t.menuStop.Enable()
		} else {
			t.menuStop.Disable()
		}
	}
}

// SetRecordable enables or disables the record menu items.
func (t *Tray) SetRecordable(ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.recordable = ok
	t.applyRecordable()
}

// Recordable reports whether the record menu items are enabled.
func (t *Tray) Recordable() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.recordable
}

// applyRecordable must be called with mu held.
func (t *Tray) applyRecordable() {
	for _, item := range t.menuRecord {
		if t.recordable {
			item.Enable()
		} else {
			item.Disable()
		}
	}
}

// Status returns the current status line.
func (t *Tray) Status() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func statusText(info recording.Info) string {
	switch info.Status {
	case recording.StatusRecording:
		if info.Countdown != nil {
			return fmt.Sprintf("● Recording (%ds left)", *info.Countdown)
		}
		return fmt.Sprintf("● Recording (%d frames)", info.Frames)
	case recording.StatusStopped:
		return fmt.Sprintf("Recorded %d frames", info.Frames)
	default:
		return "Idle"
	}
}
