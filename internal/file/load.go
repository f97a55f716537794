package file

import (
	"fmt"
	"io/fs"

	"github.com/divVerent/midisequencer/internal/sequencer"
	"github.com/divVerent/midisequencer/internal/source"
)

// Load loads the named MIDI file into seq.
// On failure seq is left empty.
func Load(fsys fs.FS, name string, seq *sequencer.Sequencer) error {
	src, err := source.Open(fsys, name)
	if err != nil {
		seq.Clear()
		return err
	}
	defer src.Close()
	err = seq.Load(src)
	if err != nil {
		return fmt.Errorf("could not load %v: %w", name, err)
	}
	return nil
}
