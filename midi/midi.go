// Package midi exports scores as Standard MIDI Files for proofreading by ear.
// The output is symbolic playback data: one track per part, a conductor track
// with the meters and tempi, and optionally the chord symbols voiced as block
// chords.
package midi

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/prisms-score/prisms"
)

// Options control the export.
type Options struct {
	// Harmony adds a "Changes" track playing every chord symbol until the
	// next one or the end of its measure.
	Harmony bool
}

const (
	defaultTempo    = 120
	defaultVelocity = 80
	harmonyChannel  = 15
	harmonyOctave   = 3
	harmonyVelocity = 64
)

var velocities = map[string]uint8{
	"ppp": 16, "pp": 33, "p": 49, "mp": 64, "mf": 80, "f": 96, "ff": 112, "fff": 127,
	"fp": 96, "sf": 112, "sfz": 112, "fz": 112,
}

type (
	// event is a message at an absolute time. Note offs sort before other
	// messages at the same time so that repeated notes retrigger.
	event struct {
		tick uint32
		off  bool
		msg  []byte
	}

	events []event

	// movementTimes holds where each measure of a movement starts.
	movementTimes struct {
		start    uint32
		measures []uint32
		lengths  []uint32
		end      uint32
	}
)

func (e *events) add(tick uint32, msg []byte) {
	*e = append(*e, event{tick: tick, msg: msg})
}

func (e *events) addOff(tick uint32, msg []byte) {
	*e = append(*e, event{tick: tick, off: true, msg: msg})
}

// track turns the events into a track with delta times and an end of track at
// the given time.
func (e events) track(end uint32) smf.Track {
	sort.SliceStable(e, func(i, j int) bool {
		if e[i].tick != e[j].tick {
			return e[i].tick < e[j].tick
		}
		return e[i].off && !e[j].off
	})
	var tr smf.Track
	var last uint32
	for _, ev := range e {
		tr.Add(ev.tick-last, ev.msg)
		last = ev.tick
	}
	if end < last {
		end = last
	}
	tr.Close(end - last)
	return tr
}

// Export converts a valid score to a multi track SMF with prisms.Divisions
// ticks per quarter note. Movements follow each other without gaps.
func Export(score *prisms.Score, opts Options) (*smf.SMF, error) {
	if err := score.Validate(); err != nil {
		return nil, fmt.Errorf("invalid score: %w", err)
	}
	times, err := timeline(score)
	if err != nil {
		return nil, err
	}
	end := times[len(times)-1].end
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(prisms.Divisions)
	conductor, err := conductorTrack(score, times)
	if err != nil {
		return nil, err
	}
	if err := s.Add(conductor.track(end)); err != nil {
		return nil, err
	}
	for pi := range score.Parts {
		tr, err := partTrack(score, pi, times)
		if err != nil {
			return nil, fmt.Errorf("part %q: %w", score.Parts[pi].ID, err)
		}
		if err := s.Add(tr.track(end)); err != nil {
			return nil, err
		}
	}
	if opts.Harmony {
		tr, err := harmonyTrack(score, times)
		if err != nil {
			return nil, err
		}
		if err := s.Add(tr.track(end)); err != nil {
			return nil, err
		}
	}
	log.Debug().Str("title", score.Title).Int("tracks", len(s.Tracks)).Uint32("ticks", end).Msg("exported midi")
	return s, nil
}

// WriteFile exports the score to a .mid file.
func WriteFile(score *prisms.Score, path string, opts Options) error {
	s, err := Export(score, opts)
	if err != nil {
		return err
	}
	if err := s.WriteFile(path); err != nil {
		return fmt.Errorf("could not write %v: %w", path, err)
	}
	return nil
}

// timeline computes the start of every measure of every movement. A pickup
// measure only lasts as long as its music; the other measures last as long as
// their meter.
func timeline(score *prisms.Score) ([]movementTimes, error) {
	var ret []movementTimes
	var t uint32
	for mi := range score.Movements {
		m := &score.Movements[mi]
		mt := movementTimes{start: t}
		pickup := m.Pickup()
		first := m.Parts[0]
		for i := range first.Measures {
			meter, err := m.MeterAt(first, i)
			if err != nil {
				return nil, fmt.Errorf("movement %d: %w", mi+1, err)
			}
			length := uint32(meter.Ticks())
			if i == 0 && pickup > 0 {
				length = uint32(pickup)
			}
			mt.measures = append(mt.measures, t)
			mt.lengths = append(mt.lengths, length)
			t += length
		}
		mt.end = t
		ret = append(ret, mt)
	}
	return ret, nil
}

func conductorTrack(score *prisms.Score, times []movementTimes) (events, error) {
	var ret events
	if score.Title != "" {
		ret.add(0, smf.MetaTrackSequenceName(score.Title))
	}
	for mi := range score.Movements {
		m := &score.Movements[mi]
		tempo := m.Tempo
		if tempo == 0 {
			tempo = defaultTempo
		}
		ret.add(times[mi].start, smf.MetaTempo(float64(tempo)))
		if m.Title != "" {
			ret.add(times[mi].start, smf.MetaMarker(m.Title))
		}
		first := m.Parts[0]
		var prev prisms.TimeSignature
		for i, meas := range first.Measures {
			meter, err := m.MeterAt(first, i)
			if err != nil {
				return nil, err
			}
			if i == 0 || meter != prev {
				ret.add(times[mi].measures[i], smf.MetaMeter(uint8(meter.Beats), uint8(meter.BeatType)))
			}
			prev = meter
			var t uint32
			for _, e := range firstVoice(meas).Events {
				if e.Tempo > 0 {
					ret.add(times[mi].measures[i]+t, smf.MetaTempo(float64(e.Tempo)))
				}
				ticks, _ := e.Ticks()
				t += uint32(ticks)
			}
		}
	}
	return ret, nil
}

func firstVoice(m prisms.Measure) prisms.Voice {
	if len(m.Voices) == 0 {
		return prisms.Voice{}
	}
	return m.Voices[0]
}

func partTrack(score *prisms.Score, pi int, times []movementTimes) (events, error) {
	part := score.Parts[pi]
	channel := uint8(pi % 16)
	if part.Channel > 0 {
		channel = uint8(part.Channel - 1)
	}
	program := uint8(0)
	if part.Program > 0 {
		program = uint8(part.Program - 1)
	}
	var ret events
	ret.add(0, smf.MetaTrackSequenceName(part.Name))
	ret.add(0, smf.MetaInstrument(part.Name))
	ret.add(0, gomidi.ProgramChange(channel, program))
	velocity := uint8(defaultVelocity)
	// sounding notes tied over to a later event, by MIDI key
	tied := map[uint8]bool{}
	for mi := range score.Movements {
		m := &score.Movements[mi]
		music, _ := m.Music(part.ID)
		for i, meas := range music.Measures {
			for _, v := range meas.Voices {
				t := times[mi].measures[i]
				for _, e := range v.Events {
					if vel, ok := velocities[e.Dynamic]; ok {
						velocity = vel
					}
					ticks, err := e.Ticks()
					if err != nil {
						return nil, err
					}
					if e.Rest || ticks == 0 {
						t += uint32(ticks)
						continue
					}
					pitches, err := e.Pitches()
					if err != nil {
						return nil, err
					}
					for _, p := range pitches {
						key := uint8(p.MIDI())
						if !(tied[key] && (e.Tie == "stop" || e.Tie == "continue")) {
							ret.add(t, gomidi.NoteOn(channel, key, velocity))
						}
						if e.Tie == "start" || e.Tie == "continue" {
							tied[key] = true
							continue
						}
						delete(tied, key)
						ret.addOff(t+uint32(ticks), gomidi.NoteOff(channel, key))
					}
					t += uint32(ticks)
				}
			}
		}
		// ties never cross movements
		for key := range tied {
			ret.addOff(times[mi].end, gomidi.NoteOff(channel, key))
			delete(tied, key)
		}
	}
	return ret, nil
}

type change struct {
	offset uint32
	symbol string
}

func harmonyTrack(score *prisms.Score, times []movementTimes) (events, error) {
	var ret events
	ret.add(0, smf.MetaTrackSequenceName("Changes"))
	ret.add(0, gomidi.ProgramChange(harmonyChannel, 0))
	for mi := range score.Movements {
		m := &score.Movements[mi]
		for i := range times[mi].measures {
			changes := measureChanges(m, i)
			for ci, c := range changes {
				h, err := prisms.ParseHarmony(c.symbol)
				if err != nil {
					return nil, err
				}
				end := times[mi].lengths[i]
				if ci+1 < len(changes) {
					end = changes[ci+1].offset
				}
				if end <= c.offset {
					continue
				}
				start := times[mi].measures[i]
				for _, n := range h.Voicing(harmonyOctave) {
					ret.add(start+c.offset, gomidi.NoteOn(harmonyChannel, uint8(n), harmonyVelocity))
					ret.addOff(start+end, gomidi.NoteOff(harmonyChannel, uint8(n)))
				}
			}
		}
	}
	return ret, nil
}

// measureChanges collects the chord symbols of a measure from all parts and
// voices by position. When several parts have a symbol at the same position,
// the first part wins.
func measureChanges(m *prisms.Movement, index int) []change {
	var ret []change
	seen := map[uint32]bool{}
	for _, pm := range m.Parts {
		if index >= len(pm.Measures) {
			continue
		}
		for _, v := range pm.Measures[index].Voices {
			var t uint32
			for _, e := range v.Events {
				if e.Harmony != "" && !seen[t] {
					seen[t] = true
					ret = append(ret, change{offset: t, symbol: e.Harmony})
				}
				ticks, _ := e.Ticks()
				t += uint32(ticks)
			}
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].offset < ret[j].offset })
	return ret
}
