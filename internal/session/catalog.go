// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "fmt"

// =============================================================================
// FIXED CONSOLE TEXT
// =============================================================================

// WelcomeMessage seeds every fresh transcript.
const WelcomeMessage = "Welcome to the Neon Nexus. How can I assist you in this digital realm?"

// DefaultSystemInstruction is sent upstream on the first turn.
const DefaultSystemInstruction = "You are an AI assistant in a cyberpunk-themed chat interface. " +
	"Respond in a style that fits the cyberpunk genre: use techno-futuristic language, " +
	"reference advanced technology, and maintain a slightly mysterious and edgy tone. " +
	"Keep responses concise but informative."

// ApologyMessage is appended to the transcript after a failed exchange.
const ApologyMessage = "A glitch in the Matrix. Please try your request again."

// Notification texts.
const (
	NotifyConnectionFailed = "CRITICAL ERROR: Neural network connection failed"
	NotifyMalfunction      = "SYSTEM ERROR: Neural interface malfunction detected"
)

// Tip is shown in the console footer.
const Tip = "TIP: Enter 'comeback' to return to the starting page."

// Placeholders are shown while a completion is pending.
var Placeholders = []string{
	"Accessing the neural network...",
	"Decrypting your request...",
	"Scanning the digital horizon...",
	"Interfacing with the cybernetic mainframe...",
	"Compiling data from the neon archives...",
	"Connecting to the NeoAPI mainframe...",
	"Initializing quantum processors...",
	"Synchronizing with the digital collective...",
}

// Fallbacks replace a blank completion.
var Fallbacks = []string{
	"Signal disrupted in the datastream. Recalibrating neural pathways...",
	"The transmission dissolved into static. Recalibrating the uplink...",
	"Data packet corrupted in transit. Recalibrating and standing by...",
	"Interference from the grid scrambled the reply. Recalibrating...",
}

// CooldownNotice describes an active cooldown.
func CooldownNotice(seconds int) string {
	return fmt.Sprintf("Neural network cooling down. Rate limit reached, retrying in %ds...", seconds)
}

// IsPlaceholder reports whether text is one of the placeholder strings.
func IsPlaceholder(text string) bool {
	for _, p := range Placeholders {
		if p == text {
			return true
		}
	}
	return false
}
