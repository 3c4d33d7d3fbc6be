// Package segment implements C6: for each diarized speaker, it assembles
// the stitched audio sample that best supports identification, under the
// speech-content and utterance-count constraints set out alongside C1-C7.
package segment

import (
	"context"
	"fmt"
	"sort"

	"github.com/hoangtranvan/speaker-id-service/internal/domain/entities"
	"github.com/hoangtranvan/speaker-id-service/pkg/audio"
	"github.com/hoangtranvan/speaker-id-service/pkg/vad"
)

// Canonical defaults, in ms except for Count.
const (
	TargetSpeechMS      = 10_000
	MaxSingleMS         = 20_000
	MinUtteranceMS      = 2_000
	MaxCount            = 5
	MinIdentificationMS = 8_000
)

// Select implements the two-phase utterance-selection algorithm over a
// single diarized speaker's utterances and the meeting's full waveform.
// utterances need not be sorted; Select sorts internally as required.
func Select(ctx context.Context, full audio.Waveform, utterances []entities.Utterance, outPath string) (entities.SelectionResult, error) {
	if len(utterances) == 0 {
		return entities.SelectionResult{LowQuality: true}, nil
	}

	byDuration := append([]entities.Utterance(nil), utterances...)
	sort.Slice(byDuration, func(i, j int) bool {
		return byDuration[i].DurationMS() > byDuration[j].DurationMS()
	})

	longest := byDuration[0]
	var chosen []entities.Utterance

	if longest.DurationMS() >= TargetSpeechMS {
		end := longest.EndMS
		if longest.DurationMS() > MaxSingleMS {
			end = longest.StartMS + MaxSingleMS
		}
		chosen = []entities.Utterance{{
			SpeakerLabel: longest.SpeakerLabel,
			Text:         longest.Text,
			StartMS:      longest.StartMS,
			EndMS:        end,
		}}
	} else {
		var accumulatedMS int64
		for _, u := range byDuration {
			if u.DurationMS() < MinUtteranceMS {
				continue
			}
			segWave, err := audio.ExtractFromWaveform(full, u.StartMS, u.EndMS)
			if err != nil {
				continue
			}
			accumulatedMS += vad.SpeechDurationMS(vad.StripSilence(segWave))
			chosen = append(chosen, u)
			if accumulatedMS >= TargetSpeechMS || len(chosen) >= MaxCount {
				break
			}
		}
	}

	if len(chosen) == 0 {
		return entities.SelectionResult{LowQuality: true}, nil
	}

	sort.Slice(chosen, func(i, j int) bool { return chosen[i].StartMS < chosen[j].StartMS })

	segments := make([]entities.Segment, 0, len(chosen))
	bounds := make([][2]int64, 0, len(chosen))
	for _, u := range chosen {
		segments = append(segments, entities.Segment{StartMS: u.StartMS, EndMS: u.EndMS})
		bounds = append(bounds, [2]int64{u.StartMS, u.EndMS})
	}

	stitched, err := audio.StitchFromWaveform(full, bounds)
	if err != nil {
		return entities.SelectionResult{}, fmt.Errorf("segment: stitch: %w", err)
	}
	if err := audio.Save(outPath, stitched); err != nil {
		return entities.SelectionResult{}, fmt.Errorf("segment: save %s: %w", outPath, err)
	}

	speechMS := vad.SpeechDurationMS(vad.StripSilence(stitched))
	return entities.SelectionResult{
		Segments:        segments,
		StitchedWAVPath: outPath,
		SpeechMS:        speechMS,
		LowQuality:      speechMS < MinIdentificationMS,
	}, nil
}
