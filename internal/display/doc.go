// Package display realises bubble windows with GTK4 and gtk4-layer-shell.
//
// Every exported method touches GTK state and must run on the GTK main loop.
// MainLoop is the executor that gets work there.
package display
