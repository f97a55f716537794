package player

import (
	"fmt"
	"log"
	"regexp"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/divVerent/midisequencer/internal/file"
)

var (
	badPortsRE       = regexp.MustCompile(`\bMidi Through\b|\bPipeWire-System\b|\bPipeWire-RT-Event\b`)
	usbPortsRE       = regexp.MustCompile(`\bUSB|\bUM-`)
	softSynthPortsRE = regexp.MustCompile(`\bFLUID\b|\bSynth\b|\bTiMidity\b`)
)

func FindBestPort(pattern string, preferred string) (drivers.Out, error) {
	return findBestPort(midi.GetOutPorts(), pattern, preferred)
}

func matchingPorts(ports []drivers.Out, pattern string) ([]drivers.Out, error) {
	portRE, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to compile -port RE %v: %w", pattern, err)
	}
	var goodPorts []drivers.Out
	for _, port := range ports {
		if !portRE.MatchString(port.String()) {
			continue
		}
		goodPorts = append(goodPorts, port)
	}
	return goodPorts, nil
}

func findBestPort(ports []drivers.Out, pattern string, preferred string) (drivers.Out, error) {
	var goodPorts []drivers.Out
	if pattern != "" {
		var err error
		goodPorts, err = matchingPorts(ports, pattern)
		if err != nil {
			return nil, err
		}
	}
	if len(goodPorts) == 0 && preferred != "" {
		for _, port := range ports {
			if port.String() != preferred {
				continue
			}
			goodPorts = append(goodPorts, port)
		}
	}
	if len(goodPorts) == 0 {
		for _, port := range ports {
			if badPortsRE.MatchString(port.String()) {
				continue
			}
			goodPorts = append(goodPorts, port)
		}
	}
	if len(goodPorts) == 0 {
		return nil, fmt.Errorf("no selected port found")
	}
	return slices.MinFunc(goodPorts, comparePorts), nil
}

func comparePorts(a, b drivers.Out) int {
	aUSB := usbPortsRE.MatchString(a.String())
	bUSB := usbPortsRE.MatchString(b.String())
	if aUSB != bUSB {
		// Prefer USB.
		if aUSB {
			return -1
		}
		return 1
	}
	aSoftSynth := softSynthPortsRE.MatchString(a.String())
	bSoftSynth := softSynthPortsRE.MatchString(b.String())
	if aSoftSynth != bSoftSynth {
		// Avoid software synthesizers.
		if aSoftSynth {
			return 1
		}
		return -1
	}
	// Otherwise sort arbitrarily.
	return a.Number() - b.Number()
}

// FindPorts returns the outputs for MIDI ports 0, 1, ... as configured.
func FindPorts(config *file.Config) ([]drivers.Out, error) {
	return findPorts(midi.GetOutPorts(), config)
}

func findPorts(ports []drivers.Out, config *file.Config) ([]drivers.Out, error) {
	first, err := findBestPort(ports, config.Port, config.PreferredPort)
	if err != nil {
		return nil, err
	}
	outs := []drivers.Out{first}
	for i, pattern := range config.ExtraPorts {
		goodPorts, err := matchingPorts(ports, pattern)
		if err != nil {
			return nil, fmt.Errorf("MIDI port %d: %w", i+1, err)
		}
		if len(goodPorts) == 0 {
			log.Printf("No output matches %q for MIDI port %d, using %v.", pattern, i+1, first)
			outs = append(outs, first)
			continue
		}
		outs = append(outs, slices.MinFunc(goodPorts, comparePorts))
	}
	return outs, nil
}
