package display

import (
	"log/slog"

	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/chatbubble/internal/gesture"
	"github.com/jmylchreest/chatbubble/internal/model"
	"github.com/jmylchreest/chatbubble/internal/overlay"
)

// bubbleWindow is one layer-shell surface showing a bubble.
type bubbleWindow struct {
	window *gtk.Window
	bubble model.Bubble
	pos    model.Position
	input  func() overlay.Input
	logger *slog.Logger

	startX, startY float64
	gate           pointerGate
	closed         bool
}

func newBubbleWindow(app *gtk.Application, b model.Bubble, at model.Position, size int,
	scheme string, input func() overlay.Input, logger *slog.Logger) *bubbleWindow {
	w := &bubbleWindow{
		bubble: b,
		pos:    at,
		input:  input,
		logger: logger,
	}

	w.window = gtk.NewWindow()
	if app != nil {
		w.window.SetApplication(app)
	}
	w.window.SetDecorated(false)
	w.window.SetResizable(false)
	w.window.SetDefaultSize(size, size)
	w.window.SetSizeRequest(size, size)
	w.window.AddCSSClass("chatbubble-window")

	layershell.InitForWindow(w.window)
	layershell.SetLayer(w.window, layershell.LayerShellLayerTop)
	layershell.SetExclusiveZone(w.window, 0)
	layershell.SetKeyboardMode(w.window, layershell.LayerShellKeyboardModeNone)
	layershell.SetNamespace(w.window, "chatbubble")
	layershell.SetAnchor(w.window, layershell.LayerShellEdgeTop, true)
	layershell.SetAnchor(w.window, layershell.LayerShellEdgeLeft, true)
	w.applyPosition()

	w.buildUI(size, scheme)
	w.connectGestures()

	return w
}

func (w *bubbleWindow) buildUI(size int, scheme string) {
	root := gtk.NewOverlay()
	root.AddCSSClass("chatbubble")
	root.AddCSSClass(schemeClass(scheme, systemDark))
	root.SetOverflow(gtk.OverflowHidden)

	if path, ok := loadableAvatar(w.bubble); ok {
		img := gtk.NewImage()
		img.SetFromFile(path)
		img.SetPixelSize(size)
		img.AddCSSClass("bubble-avatar")
		img.SetTooltipText(w.bubble.DisplayName)
		root.SetChild(img)
	} else {
		if w.bubble.AvatarURL != "" {
			w.logger.Debug("avatar not loadable, using initials", "identity", w.bubble.Identity, "avatar", w.bubble.AvatarURL)
		}
		lbl := gtk.NewLabel(w.bubble.Initials())
		lbl.AddCSSClass("bubble-initials")
		lbl.SetHAlign(gtk.AlignCenter)
		lbl.SetVAlign(gtk.AlignCenter)
		lbl.SetTooltipText(w.bubble.DisplayName)
		root.SetChild(lbl)
	}

	closeBtn := gtk.NewButtonFromIconName("window-close-symbolic")
	closeBtn.AddCSSClass("bubble-close")
	closeBtn.AddCSSClass("flat")
	closeBtn.SetHAlign(gtk.AlignEnd)
	closeBtn.SetVAlign(gtk.AlignStart)
	closeBtn.SetTooltipText("Close")

	// Claim presses on the close button in the capture phase so they never
	// reach the window's drag gesture and are not reported as taps.
	click := gtk.NewGestureClick()
	click.SetButton(1)
	click.SetPropagationPhase(gtk.PhaseCapture)
	click.ConnectPressed(func(nPress int, x, y float64) {
		click.SetState(gtk.EventSequenceClaimed)
		w.gate.controlPressed()
	})
	click.ConnectReleased(func(nPress int, x, y float64) {
		if !w.gate.controlReleased() {
			return
		}
		if in := w.input(); in != nil {
			in.Dismiss(w.bubble.Identity)
		}
	})
	closeBtn.AddController(click)
	root.AddOverlay(closeBtn)

	w.window.SetChild(root)
}

// connectGestures forwards primary-button drags as pointer samples in
// screen coordinates. Drags that start on the close button are dropped.
func (w *bubbleWindow) connectGestures() {
	drag := gtk.NewGestureDrag()
	drag.SetButton(1)

	drag.ConnectDragBegin(func(startX, startY float64) {
		if !w.gate.begin() {
			return
		}
		w.startX, w.startY = startX, startY
		w.pointer(gesture.PhaseDown, 0, 0)
	})
	drag.ConnectDragUpdate(func(offsetX, offsetY float64) {
		if w.gate.update() {
			w.pointer(gesture.PhaseMove, offsetX, offsetY)
		}
	})
	drag.ConnectDragEnd(func(offsetX, offsetY float64) {
		if w.gate.end() {
			w.pointer(gesture.PhaseUp, offsetX, offsetY)
		}
	})

	w.window.AddController(drag)
}

func (w *bubbleWindow) pointer(phase gesture.Phase, offsetX, offsetY float64) {
	in := w.input()
	if in == nil || w.closed {
		return
	}
	x, y := screenPoint(w.pos, w.startX, w.startY, offsetX, offsetY)
	in.Pointer(w.bubble.Identity, gesture.Sample{Phase: phase, X: x, Y: y})
}

func (w *bubbleWindow) show() {
	w.window.Present()
}

func (w *bubbleWindow) moveTo(p model.Position) {
	if w.closed || w.pos == p {
		return
	}
	w.pos = p
	w.applyPosition()
}

func (w *bubbleWindow) applyPosition() {
	layershell.SetMargin(w.window, layershell.LayerShellEdgeTop, w.pos.Y)
	layershell.SetMargin(w.window, layershell.LayerShellEdgeLeft, w.pos.X)
}

func (w *bubbleWindow) close() {
	if w.closed {
		return
	}
	w.closed = true
	w.window.Destroy()
}
