package rtc

import (
	"sync/atomic"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

// SampleMicrophone adapts a sample-based capture source to the
// core.Microphone contract. The capture loop calls WriteSample; while
// disabled samples are dropped, so muting never renegotiates.
type SampleMicrophone struct {
	track   *webrtc.TrackLocalStaticSample
	enabled atomic.Bool
	stopped atomic.Bool
}

// NewSampleMicrophone builds an opus microphone track. Participants
// always start muted.
func NewSampleMicrophone(streamID string) (*SampleMicrophone, error) {
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio", streamID,
	)
	if err != nil {
		return nil, err
	}
	return &SampleMicrophone{track: track}, nil
}

func (m *SampleMicrophone) Track() webrtc.TrackLocal { return m.track }

func (m *SampleMicrophone) SetEnabled(enabled bool) { m.enabled.Store(enabled) }

func (m *SampleMicrophone) Enabled() bool { return m.enabled.Load() && !m.stopped.Load() }

func (m *SampleMicrophone) Stop() { m.stopped.Store(true) }

// WriteSample forwards one captured sample when transmission is enabled.
func (m *SampleMicrophone) WriteSample(s media.Sample) error {
	if !m.Enabled() {
		return nil
	}
	return m.track.WriteSample(s)
}
