package tray

import (
	"github.com/getlantern/systray"
)

// Options configures the tray surface. Callbacks run on the tray's click
// goroutine and must stay fast: they only signal the lifecycle entry
// points, never block on polls.
type Options struct {
	Title   string
	Tooltip string

	// Icon is optional platform icon bytes (.ico on Windows).
	Icon []byte

	// OnOpen fires when the user asks for the main window (menu item or
	// left click where the platform reports it).
	OnOpen func()

	// OnQuit fires when the user selects Quit from the menu.
	OnQuit func()
}

var (
	opts   Options
	onExit func()

	openItem *systray.MenuItem
	quitItem *systray.MenuItem
)

// Run starts the system tray. This blocks the calling goroutine (must be
// main on macOS). onExitFn is called once when the tray loop ends.
func Run(o Options, onExitFn func()) {
	opts = o
	onExit = onExitFn
	systray.Run(onReady, onQuit)
}

// Quit signals the tray loop to exit.
func Quit() {
	systray.Quit()
}

func onReady() {
	if len(opts.Icon) > 0 {
		systray.SetTemplateIcon(opts.Icon, opts.Icon)
	}
	if opts.Tooltip != "" {
		systray.SetTooltip(opts.Tooltip)
	}

	header := systray.AddMenuItem(opts.Title, "")
	header.Disable()

	systray.AddSeparator()

	openItem = systray.AddMenuItem("Open Slate Editor", "Show the editor window")
	quitItem = systray.AddMenuItem("Quit", "Shut down the editor and its server")

	go handleClicks()
}

func onQuit() {
	if onExit != nil {
		onExit()
	}
}

func handleClicks() {
	for {
		select {
		case <-openItem.ClickedCh:
			if opts.OnOpen != nil {
				opts.OnOpen()
			}
		case <-quitItem.ClickedCh:
			if opts.OnQuit != nil {
				opts.OnQuit()
			}
		}
	}
}
