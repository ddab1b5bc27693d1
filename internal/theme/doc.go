// Package theme loads the CSS used to style bubble windows. Themes are
// resolved from ~/.config/chatbubble/themes/ first and fall back to the
// bundled themes.
package theme
