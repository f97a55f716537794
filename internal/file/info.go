package file

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/divVerent/midisequencer/internal/sequencer"
)

// Info summarizes a loaded MIDI file.
type Info struct {
	File      string         `yaml:"file"`
	Title     string         `yaml:"title,omitempty"`
	Copyright string         `yaml:"copyright,omitempty"`
	Song      string         `yaml:"song,omitempty"`
	NumPorts  int            `yaml:"num_ports"`
	TotalTime float64        `yaml:"total_time"`
	Events    map[string]int `yaml:"events"`
}

// Describe summarizes seq, which was loaded from the named file.
func Describe(name string, seq *sequencer.Sequencer) *Info {
	info := &Info{
		File:      name,
		Title:     seq.Title(),
		Copyright: seq.Copyright(),
		Song:      seq.Song(),
		NumPorts:  seq.NumPorts(),
		TotalTime: seq.TotalTime(),
		Events:    map[string]int{},
	}
	seq.ForEachEvent(func(ev sequencer.Event, data []byte) error {
		info.Events[ev.Payload.Kind.String()]++
		return nil
	})
	return info
}

// WriteInfo writes info as YAML.
func WriteInfo(w io.Writer, info *Info) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2) // Match yq.
	err := enc.Encode(info)
	if err != nil {
		return fmt.Errorf("could not encode info: %w", err)
	}
	return enc.Close()
}
