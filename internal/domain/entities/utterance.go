package entities

// Utterance is one provider-reported speech turn.
type Utterance struct {
	SpeakerLabel string // provider-assigned opaque label, e.g. "A"
	Text         string
	StartMS      int64
	EndMS        int64
}

// DurationMS returns end - start; callers assume EndMS > StartMS.
func (u Utterance) DurationMS() int64 {
	return u.EndMS - u.StartMS
}

// Segment is an inclusive-start, exclusive-end time range within an audio
// file, used both for selection and for stitching.
type Segment struct {
	StartMS int64
	EndMS   int64
}

// DiarizedSpeaker groups the utterance indices belonging to one provider
// label, with derived duration statistics.
type DiarizedSpeaker struct {
	MeetingSpeakerID   string
	UtteranceIdx       []int
	LongestUtteranceMS int64
	TotalSpeechMS      int64
}

// GroupDiarizedSpeakers partitions utterances by SpeakerLabel, computing
// each group's derived duration statistics.
func GroupDiarizedSpeakers(utterances []Utterance) map[string]*DiarizedSpeaker {
	out := make(map[string]*DiarizedSpeaker)
	for i, u := range utterances {
		d, ok := out[u.SpeakerLabel]
		if !ok {
			d = &DiarizedSpeaker{MeetingSpeakerID: u.SpeakerLabel}
			out[u.SpeakerLabel] = d
		}
		d.UtteranceIdx = append(d.UtteranceIdx, i)
		d.TotalSpeechMS += u.DurationMS()
		if u.DurationMS() > d.LongestUtteranceMS {
			d.LongestUtteranceMS = u.DurationMS()
		}
	}
	return out
}

// Utterances resolves this speaker's indices back against the full
// utterance list.
func (d *DiarizedSpeaker) Utterances(all []Utterance) []Utterance {
	out := make([]Utterance, 0, len(d.UtteranceIdx))
	for _, idx := range d.UtteranceIdx {
		out = append(out, all[idx])
	}
	return out
}
