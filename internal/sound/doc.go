// Package sound plays the short cues for bubbles appearing and being tapped.
package sound
