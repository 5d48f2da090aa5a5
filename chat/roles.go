package chat

// Badges are the capability flags the network attaches to a sender.
type Badges struct {
	Broadcaster bool `json:"broadcaster"`
	Moderator   bool `json:"moderator"`
	VIP         bool `json:"vip"`
	Subscriber  bool `json:"subscriber"`
}

// DisplayTag renders the highest-ranking badge as a short prefix tag, or ""
// for an untagged viewer.
func (b Badges) DisplayTag() string {
	switch {
	case b.Broadcaster:
		return "[B]"
	case b.Moderator:
		return "[M]"
	case b.VIP:
		return "[V]"
	case b.Subscriber:
		return "[S]"
	default:
		return ""
	}
}

// Elevated reports whether the network grants this account the raised send
// ceiling in the channel.
func (b Badges) Elevated() bool {
	return b.Broadcaster || b.Moderator
}
