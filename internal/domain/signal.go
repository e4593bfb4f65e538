package domain

// SignalType discriminates session-negotiation payloads.
type SignalType string

const (
	SignalOffer     SignalType = "offer"
	SignalAnswer    SignalType = "answer"
	SignalCandidate SignalType = "candidate"
)

// SignalMessage is a transient negotiation payload addressed to one
// recipient inside a room. The channel deletes it on delivery, so each
// message is observed at most once.
type SignalMessage struct {
	Type      SignalType `json:"type"`
	From      UserID     `json:"from"`
	To        UserID     `json:"to"`
	SDP       string     `json:"sdp,omitempty"`
	Candidate *Candidate `json:"candidate,omitempty"`
}

// Candidate mirrors the ICE candidate wire shape without pulling the
// webrtc dependency into the domain.
type Candidate struct {
	Candidate     string `json:"candidate"`
	SDPMid        string `json:"sdpMid,omitempty"`
	SDPMLineIndex uint16 `json:"sdpMLineIndex,omitempty"`
}

// Invite is a transient seat invitation: created by an authority,
// destroyed on accept or decline.
type Invite struct {
	ID        string `json:"id"`
	To        UserID `json:"to"`
	Seat      Seat   `json:"seatIndex"`
	From      UserID `json:"from"`
	FromName  string `json:"fromName,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}
