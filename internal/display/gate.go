package display

// pointerGate keeps presses on a window control out of the bubble's drag
// gesture. The control sees the press in the capture phase, before the
// window's drag gesture, and a drag sequence that began while the control
// was held is suppressed until it ends, even if the control is released
// first.
type pointerGate struct {
	controlHeld bool
	suppressed  bool
}

func (g *pointerGate) controlPressed() {
	g.controlHeld = true
}

// controlReleased reports whether the control had been pressed.
func (g *pointerGate) controlReleased() bool {
	held := g.controlHeld
	g.controlHeld = false
	return held
}

// begin reports whether a new drag sequence should be forwarded.
func (g *pointerGate) begin() bool {
	g.suppressed = g.controlHeld
	return !g.suppressed
}

func (g *pointerGate) update() bool {
	return !g.suppressed
}

// end reports whether the finished sequence was forwarded and resets it.
func (g *pointerGate) end() bool {
	forwarded := !g.suppressed
	g.suppressed = false
	return forwarded
}
