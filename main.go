package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/divVerent/midisequencer/internal/output"
	"github.com/divVerent/midisequencer/internal/sequencer"
	"github.com/divVerent/midisequencer/internal/source"
	"github.com/divVerent/midisequencer/internal/version"
)

var (
	i           = flag.String("i", "", "input file name (MIDI)")
	showVersion = flag.Bool("version", false, "print the version and exit")
)

// Dump prints the merged timeline of the given file.
func Dump(name string) error {
	f, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("could not open %v: %w", name, err)
	}
	defer f.Close()

	seq := sequencer.New()
	err = seq.Load(source.NewFile(f))
	if err != nil {
		return fmt.Errorf("could not load %v: %w", name, err)
	}

	return seq.ForEachEvent(func(ev sequencer.Event, data []byte) error {
		_, err := fmt.Println(output.Describe(ev, data))
		return err
	})
}

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.Version())
		return
	}
	if *i == "" {
		log.Println(errors.New("no input file given, use -i"))
		os.Exit(1)
	}
	err := Dump(*i)
	if err != nil {
		log.Printf("Failed to dump: %v", err)
		os.Exit(1)
	}
}
