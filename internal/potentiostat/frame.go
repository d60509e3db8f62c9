package potentiostat

import "time"

// ChannelCount is the number of decoded channels per frame: six
// electrochemical channels plus the temperature channel.
const ChannelCount = 7

// Frame is one decoded sensor package. Channels 1-6 carry converted
// electrode currents; channel 7 carries the plate temperature. Counter
// increases by one per frame within a reader's lifetime.
type Frame struct {
	Timestamp time.Time
	Counter   uint64
	Channels  [ChannelCount]float64
}

// Temperature returns the temperature channel.
func (f Frame) Temperature() float64 {
	return f.Channels[ChannelCount-1]
}
