package engine

import (
	"encoding/json"

	"github.com/otherjamesbrown/penf-outreach/pkg/channels"
)

// Interaction is one historical engagement event supplied by the caller.
// Channel is kept raw so unknown values can be skipped rather than rejected.
type Interaction struct {
	Channel string `json:"channel" yaml:"channel"`
}

// UnmarshalJSON decodes an interaction record. A channel that is not a JSON
// string decodes as "" so the record is skipped like any unknown channel.
// The record itself must still be an object.
func (in *Interaction) UnmarshalJSON(data []byte) error {
	var raw struct {
		Channel json.RawMessage `json:"channel"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	in.Channel = ""
	if len(raw.Channel) > 0 {
		var name string
		if json.Unmarshal(raw.Channel, &name) == nil {
			in.Channel = name
		}
	}
	return nil
}

// Profile summarizes a customer's channel usage. It is derived per call and
// never stored.
type Profile struct {
	Counts           map[channels.Channel]int `json:"counts" yaml:"counts"`
	TotalEngagement  int                      `json:"total_engagement" yaml:"total_engagement"`
	PreferredChannel channels.Channel         `json:"preferred_channel,omitempty" yaml:"preferred_channel,omitempty"`
	Segment          channels.Segment         `json:"segment" yaml:"segment"`
}

// HasPreference reports whether the history produced a preferred channel.
func (p Profile) HasPreference() bool {
	return p.PreferredChannel != ""
}

// AnalyzeBehavior tallies interactions per channel in a single pass.
// The preferred channel has the highest count; ties go to the channel that
// comes first in channels.All(). Without any recognized interaction there is
// no preference.
func AnalyzeBehavior(interactions []Interaction) Profile {
	p := Profile{Counts: make(map[channels.Channel]int, len(channels.All()))}
	for _, c := range channels.All() {
		p.Counts[c] = 0
	}

	for _, in := range interactions {
		c, ok := channels.ParseChannel(in.Channel)
		if !ok {
			continue
		}
		p.Counts[c]++
		p.TotalEngagement++
	}

	if p.TotalEngagement > 0 {
		best := -1
		for _, c := range channels.All() {
			if p.Counts[c] > best {
				best = p.Counts[c]
				p.PreferredChannel = c
			}
		}
	}

	p.Segment = channels.SegmentFor(p.TotalEngagement)
	return p
}
