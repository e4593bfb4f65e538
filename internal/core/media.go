package core

import (
	"context"

	"github.com/pion/webrtc/v4"

	"github.com/lumachat/voiceroom/internal/domain"
)

// MediaConnection is one bidirectional audio peer connection to a single
// remote participant.
type MediaConnection interface {
	// Start configures internal callbacks and binds the connection
	// lifetime to ctx.
	Start(ctx context.Context) error
	// Close stops all underlying media resources.
	Close()

	// CreateOffer generates and applies the local session offer.
	CreateOffer() (sdp string, err error)
	// ApplyOfferAndCreateAnswer applies a remote offer and returns the
	// local answer.
	ApplyOfferAndCreateAnswer(sdp string) (string, error)
	// ApplyAnswer applies a remote answer. Applying onto an already
	// stable connection is a no-op.
	ApplyAnswer(sdp string) error
	// HasRemoteDescription reports whether a remote description is set;
	// candidates must not be applied before it is.
	HasRemoteDescription() bool
	// AddICECandidate applies a remote ICE candidate.
	AddICECandidate(domain.Candidate) error

	// OnICECandidate sets a callback for newly gathered local candidates.
	OnICECandidate(func(domain.Candidate))
	// OnTrack sets a callback invoked when a remote track arrives.
	OnTrack(func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver))
	// OnClosed sets a callback for media session cleanup.
	OnClosed(func())
}

// Microphone is the local capture source. It may be absent entirely
// (permission denied); the session then degrades to receive-only.
type Microphone interface {
	// Track is attached to every outbound peer connection.
	Track() webrtc.TrackLocal
	// SetEnabled gates transmission without renegotiating.
	SetEnabled(enabled bool)
	Enabled() bool
	// Stop releases the capture device. Idempotent.
	Stop()
}
