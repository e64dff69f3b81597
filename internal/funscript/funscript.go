// Package funscript models per-axis motion tracks: time-ordered lists of
// (millisecond, position) actions grouped into a project.
package funscript

import (
	"slices"
	"sort"

	"github.com/banshee-data/motionscript/internal/axis"
)

// Action is one keyframe: position Pos (0-100) at At milliseconds.
type Action struct {
	At  int `json:"at"`
	Pos int `json:"pos"`
}

// Track is the action list for one output axis. Actions are kept sorted by
// At; Dedupe collapses equal timestamps to the last written action.
type Track struct {
	Name     string   `json:"name"`
	Actions  []Action `json:"actions"`
	Inverted bool     `json:"inverted"`
	Range    int      `json:"range"`
}

// NewTrack returns an empty track with a full 0-100 range.
func NewTrack(name string) *Track {
	return &Track{Name: name, Range: 100}
}

// Sort orders actions by timestamp, keeping insertion order for ties.
func (t *Track) Sort() {
	sort.SliceStable(t.Actions, func(i, j int) bool { return t.Actions[i].At < t.Actions[j].At })
}

// Dedupe sorts and keeps only the last-written action per timestamp.
func (t *Track) Dedupe() {
	t.Sort()
	out := t.Actions[:0]
	for i, a := range t.Actions {
		if i+1 < len(t.Actions) && t.Actions[i+1].At == a.At {
			continue
		}
		out = append(out, a)
	}
	t.Actions = out
}

// InRange returns a copy of the actions with start <= At <= end.
func (t *Track) InRange(start, end int) []Action {
	var out []Action
	for _, a := range t.Actions {
		if a.At >= start && a.At <= end {
			out = append(out, a)
		}
	}
	return out
}

// RemoveRange deletes actions with start <= At <= end and returns them.
func (t *Track) RemoveRange(start, end int) []Action {
	var removed []Action
	kept := t.Actions[:0]
	for _, a := range t.Actions {
		if a.At >= start && a.At <= end {
			removed = append(removed, a)
			continue
		}
		kept = append(kept, a)
	}
	t.Actions = kept
	return removed
}

// Add inserts actions, first clearing whatever the track held between the
// earliest and latest of them.
func (t *Track) Add(actions []Action) {
	if len(actions) == 0 {
		return
	}
	start, end := Span(actions)
	t.RemoveRange(start, end)
	t.Actions = append(t.Actions, actions...)
	t.Sort()
}

// Clone returns a deep copy.
func (t *Track) Clone() *Track {
	c := *t
	c.Actions = slices.Clone(t.Actions)
	return &c
}

// DurationMs is the timestamp of the last action, or 0 when empty.
func (t *Track) DurationMs() int {
	if len(t.Actions) == 0 {
		return 0
	}
	return t.Actions[len(t.Actions)-1].At
}

// Span returns the smallest and largest At in actions.
func Span(actions []Action) (start, end int) {
	if len(actions) == 0 {
		return 0, 0
	}
	start, end = actions[0].At, actions[0].At
	for _, a := range actions[1:] {
		start = min(start, a.At)
		end = max(end, a.At)
	}
	return start, end
}

// ClampPos limits a position to 0-100.
func ClampPos(p int) int {
	return max(0, min(100, p))
}

// AxisDef describes one output axis of a multi-axis script and which
// controller axis drives it by default.
type AxisDef struct {
	Name       string
	Suffix     string
	Label      string
	Controller axis.Axis
}

// Definitions lists the standard multi-axis layout in display order.
var Definitions = []AxisDef{
	{Name: "stroke", Suffix: "", Label: "Stroke (L0)", Controller: axis.Y},
	{Name: "surge", Suffix: ".surge", Label: "Surge (L1)", Controller: axis.Z},
	{Name: "sway", Suffix: ".sway", Label: "Sway (L2)", Controller: axis.X},
	{Name: "twist", Suffix: ".twist", Label: "Twist (R0)", Controller: axis.Yaw},
	{Name: "roll", Suffix: ".roll", Label: "Roll (R1)", Controller: axis.Roll},
	{Name: "pitch", Suffix: ".pitch", Label: "Pitch (R2)", Controller: axis.Pitch},
}

// Definition looks up an axis definition by name.
func Definition(name string) (AxisDef, bool) {
	for _, d := range Definitions {
		if d.Name == name {
			return d, true
		}
	}
	return AxisDef{}, false
}

// DefaultTrack is the track every project starts with.
const DefaultTrack = "stroke"

// Project groups the tracks authored against one video.
type Project struct {
	VideoPath string            `json:"video_path"`
	Tracks    map[string]*Track `json:"tracks"`
}

// NewProject returns a project holding an empty stroke track.
func NewProject(videoPath string) *Project {
	return &Project{
		VideoPath: videoPath,
		Tracks:    map[string]*Track{DefaultTrack: NewTrack(DefaultTrack)},
	}
}

// Track returns the named track, creating it if needed.
func (p *Project) Track(name string) *Track {
	if p.Tracks == nil {
		p.Tracks = map[string]*Track{}
	}
	t, ok := p.Tracks[name]
	if !ok {
		t = NewTrack(name)
		p.Tracks[name] = t
	}
	return t
}

// Names lists track names: standard axes in definition order, then any
// others alphabetically.
func (p *Project) Names() []string {
	var out, extra []string
	for _, d := range Definitions {
		if _, ok := p.Tracks[d.Name]; ok {
			out = append(out, d.Name)
		}
	}
	for name := range p.Tracks {
		if _, ok := Definition(name); !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// TotalActions counts actions over all tracks.
func (p *Project) TotalActions() int {
	n := 0
	for _, t := range p.Tracks {
		n += len(t.Actions)
	}
	return n
}

// DurationMs is the latest action timestamp over all tracks.
func (p *Project) DurationMs() int {
	d := 0
	for _, t := range p.Tracks {
		d = max(d, t.DurationMs())
	}
	return d
}
