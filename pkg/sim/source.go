package sim

import (
	"math"
	"time"
)

// CounterSource yields 1, 2, 3, ... up to Limit. Zero Limit never
// ends.
type CounterSource struct {
	Limit uint64
	next  uint64
}

// Poll returns the next record if any.
func (s *CounterSource) Poll() (uint64, bool) {
	if s.Limit > 0 && s.next >= s.Limit {
		return 0, false
	}
	s.next++
	return s.next, true
}

// Sample is one EEG reading.
type Sample struct {
	Channel uint8
	// Seq is the 24-bit sample counter.
	Seq uint32
	// Value is the signed 24-bit ADC reading.
	Value int32
}

// Pack encodes a sample into a record:
// bits 63-56 channel, 55-32 sequence, 31-0 value.
func (s Sample) Pack() uint64 {
	return uint64(s.Channel)<<56 | uint64(s.Seq&0xffffff)<<32 | uint64(uint32(s.Value))
}

// UnpackSample decodes a record produced by Sample.Pack.
func UnpackSample(v uint64) Sample {
	return Sample{
		Channel: uint8(v >> 56),
		Seq:     uint32(v>>32) & 0xffffff,
		Value:   int32(uint32(v)),
	}
}

// SampleSource synthesizes sine waves on a number of channels at
// Rate samples per second per channel.
type SampleSource struct {
	Channels  int
	Rate      int
	Frequency float64
	// Amplitude is in ADC counts.
	Amplitude float64

	start time.Time
	seq   uint32
	ch    int
	now   func() time.Time
}

// NewSampleSource creates a source with typical EEG settings.
func NewSampleSource(channels int) *SampleSource {
	return &SampleSource{Channels: channels, Rate: 250, Frequency: 10, Amplitude: 1 << 20}
}

// Poll returns the next sample once it is due.
func (s *SampleSource) Poll() (uint64, bool) {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	t := now()
	if s.start.IsZero() {
		s.start = t
	}
	due := uint32(t.Sub(s.start) * time.Duration(s.Rate) / time.Second)
	if s.seq > due {
		return 0, false
	}
	phase := 2 * math.Pi * s.Frequency * float64(s.seq) / float64(s.Rate)
	smp := Sample{
		Channel: uint8(s.ch),
		Seq:     s.seq,
		Value:   int32(s.Amplitude * math.Sin(phase+float64(s.ch))),
	}
	if s.ch++; s.ch >= s.Channels {
		s.ch = 0
		s.seq++
	}
	return smp.Pack(), true
}
