package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/divVerent/midisequencer/internal/file"
	"github.com/divVerent/midisequencer/internal/sequencer"
	"github.com/divVerent/midisequencer/internal/version"
)

var (
	i           = flag.String("i", "", "input file name (MIDI)")
	showVersion = flag.Bool("version", false, "print the version and exit")
)

func Main() error {
	if *i == "" {
		return errors.New("no input file given, use -i")
	}

	fsys := os.DirFS(filepath.Dir(*i))
	seq := sequencer.New()
	err := file.Load(fsys, filepath.Base(*i), seq)
	if err != nil {
		return fmt.Errorf("failed to load: %w", err)
	}

	return file.WriteInfo(os.Stdout, file.Describe(*i, seq))
}

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.Version())
		return
	}
	err := Main()
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
