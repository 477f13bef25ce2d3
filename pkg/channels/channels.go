// Package channels defines the closed set of outbound channels, message
// intents and engagement segments used by the recommendation engine.
package channels

// Channel is an outbound communication channel.
type Channel string

const (
	WhatsApp    Channel = "whatsapp"
	Email       Channel = "email"
	InstagramDM Channel = "instagram_dm"
)

// All returns every channel in tie-break priority order
// (whatsapp > email > instagram_dm).
func All() []Channel {
	return []Channel{WhatsApp, Email, InstagramDM}
}

// ParseChannel converts a raw string into a Channel. Matching is exact.
// The second return value is false for anything outside the enumeration.
func ParseChannel(s string) (Channel, bool) {
	switch c := Channel(s); c {
	case WhatsApp, Email, InstagramDM:
		return c, true
	default:
		return "", false
	}
}

// IsValid reports whether c is one of the known channels.
func (c Channel) IsValid() bool {
	_, ok := ParseChannel(string(c))
	return ok
}

// DisplayName returns the human-facing name used in reason strings.
func (c Channel) DisplayName() string {
	switch c {
	case WhatsApp:
		return "WhatsApp"
	case Email:
		return "Email"
	case InstagramDM:
		return "Instagram DM"
	default:
		return string(c)
	}
}

// String returns the wire value of the channel.
func (c Channel) String() string {
	return string(c)
}

// Priority returns the tie-break rank of the channel; lower wins.
// Unknown channels rank after every known one.
func (c Channel) Priority() int {
	for i, known := range All() {
		if c == known {
			return i
		}
	}
	return len(All())
}
