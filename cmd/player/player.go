package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"golang.org/x/term"

	"github.com/divVerent/midisequencer/internal/file"
	"github.com/divVerent/midisequencer/internal/output"
	"github.com/divVerent/midisequencer/internal/player"
	"github.com/divVerent/midisequencer/internal/sequencer"
	"github.com/divVerent/midisequencer/internal/version"
)

var (
	c           = flag.String("c", "midisequencer.yml", "config file name (YAML)")
	port        = flag.String("port", "", "regular expression to match the preferred output port")
	i           = flag.String("i", "", "when set, just play this file then exit")
	loop        = flag.Bool("loop", false, "restart playback at the end of the file")
	tempo       = flag.Float64("tempo", 0, "initial tempo factor")
	dump        = flag.String("dump", "", "when set, also write every played event to this file")
	showVersion = flag.Bool("version", false, "print the version and exit")
)

var (
	playRE  = regexp.MustCompile(`^play (\S+)$`)
	tempoRE = regexp.MustCompile(`^tempo ([\d.]+)$`)
	stopRE  = regexp.MustCompile(`^s(?:t(?:op?)?)?$`)
	quitRE  = regexp.MustCompile(`^q(?:u(?:it?)?)?$`)
)

func processCommand(b *player.Backend, fsys fs.FS, cmd []byte) error {
	if sub := playRE.FindSubmatch(cmd); sub != nil {
		filename := string(sub[1])
		f, err := fsys.Open(filename)
		if err == nil {
			f.Close()
		} else {
			altName := filename + ".mid"
			f, err := fsys.Open(altName)
			if err == nil {
				f.Close()
				filename = altName
			}
		}
		b.Commands <- player.Command{
			PlayOne: filename,
		}
		return nil
	}
	if sub := tempoRE.FindSubmatch(cmd); sub != nil {
		num := 0.0
		_, err := fmt.Sscanf(string(sub[1]), "%f", &num)
		if err != nil {
			return errors.New("failed to parse command: does not end with a number")
		}
		if num <= 0 {
			return errors.New("tempo must be positive")
		}
		b.Commands <- player.Command{
			Tempo: num,
		}
		return nil
	}
	if stopRE.Match(cmd) {
		b.Commands <- player.Command{
			Stop: true,
		}
		return nil
	}
	if quitRE.Match(cmd) {
		b.Commands <- player.Command{
			Quit: true,
		}
		return nil
	}
	return errors.New("unknown command")
}

func textModeUI(b *player.Backend, fsys fs.FS) error {
	defer close(b.Commands) // The backend quits when reading from the closed channel.

	stdinFD := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(stdinFD)
	if err != nil {
		return fmt.Errorf("cannot make terminal raw: %v", err)
	}
	defer term.Restore(stdinFD, oldState)

	stdin := make(chan byte)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				log.Printf("Error reading stdin: %v.", err)
				close(stdin)
				return
			}
			if n == 0 {
				continue
			}
			stdin <- buf[0]
		}
	}()

	var ui player.UIState
	var ok bool
	inputMode := false
	var inputCommand []byte
	var commandErr error

	for {
		var bar string
		if ui.Playing {
			bar = " >>  "
			if ui.Paused {
				bar = " ||  "
			}
			if ui.PlaybackLen > 0 {
				fReal := ui.ActualPlaybackFraction()
				for i := 0; i <= 73; i++ {
					f := float64(i) / 73
					if fReal >= f {
						bar += "#"
					} else {
						bar += "="
					}
				}
			}
		} else {
			bar = "[  ] --------------------------------------------------------------------------"
		}
		ifLine := func(b bool, s string) string {
			if !b {
				return ""
			}
			return s
		}
		lines := []string{
			"\033[m\033[2J\033[H\033[1;34mMIDI Sequencer - text mode player\033[m",
			"",
			ifLine(ui.CurrentFile != "", fmt.Sprintf("\033[1mNow Playing:\033[m %v", ui.CurrentFile)),
			ifLine(ui.Title != "", fmt.Sprintf("\033[1mTitle:\033[m %v", ui.Title)),
			ifLine(ui.Copyright != "", fmt.Sprintf("\033[1mCopyright:\033[m %v", ui.Copyright)),
			ifLine(ui.Song != "", fmt.Sprintf("\033[1mSong:\033[m %v", ui.Song)),
			"",
			bar,
			ifLine(ui.Playing, fmt.Sprintf("     %v / %v",
				ui.ActualPlaybackPos().Truncate(time.Second), ui.PlaybackLen.Truncate(time.Second))),
			"",
			ifLine(ui.Tempo != 0, fmt.Sprintf("\033[1mTempo:\033[m %.0f%%", 100*ui.Tempo)),
			ifLine(ui.NumPorts > 1, fmt.Sprintf("\033[1mPorts:\033[m %d", ui.NumPorts)),
			"",
			ifLine(ui.Err != nil, fmt.Sprintf("\033[1;31mError:\033[0;31m %v\033[m", ui.Err)),
			ifLine(!ui.Playing && ui.Err == nil, "\033[1;33mType :play <file> to start.\033[m"),
			"",
			ifLine(commandErr != nil, fmt.Sprintf("\033[1;31mCommand Error:\033[0;31m %v\033[m", commandErr)),
			ifLine(inputMode, fmt.Sprintf("\033[1m:\033[m%s", inputCommand)),
		}
		os.Stderr.Write([]byte(strings.Join(lines, "\r\n")))

		select {
		case ui, ok = <-b.UIStates:
			if !ok {
				// UI channel was closed.
				return nil
			}
			// Rest handled above.
		case ch, ok := <-stdin:
			if !ok {
				// Stdin is gone; nothing more to control.
				return nil
			}
			if inputMode {
				switch ch {
				case 0x08, 0x7F:
					if len(inputCommand) > 0 {
						inputCommand = inputCommand[:len(inputCommand)-1]
					}
				case 0x0A, 0x0D:
					if len(inputCommand) > 0 {
						err := processCommand(b, fsys, inputCommand)
						if err != nil {
							commandErr = fmt.Errorf("could not parse command %q: %v", inputCommand, err)
						}
					}
					inputCommand = inputCommand[:0]
					inputMode = false
				case 0x03:
					// Ctrl-C. Quit right away.
					b.Commands <- player.Command{
						Quit: true,
					}
				case 0x1B:
					inputMode = false
				default:
					if ch == ':' && len(inputCommand) == 0 {
						continue
					}
					inputCommand = append(inputCommand, ch)
				}
			} else {
				switch ch {
				case '+', '=', '.':
					// More tempo.
					t := ui.Tempo + 0.05
					if t > 4 {
						t = 4
					}
					b.Commands <- player.Command{
						Tempo: t,
					}
				case '-', '_', ',':
					// Less tempo.
					t := ui.Tempo - 0.05
					if t < 0.25 {
						t = 0.25
					}
					b.Commands <- player.Command{
						Tempo: t,
					}
				case ' ':
					if ui.Paused {
						b.Commands <- player.Command{
							Resume: true,
						}
					} else {
						b.Commands <- player.Command{
							Pause: true,
						}
					}
				case 'r':
					b.Commands <- player.Command{
						Rewind: true,
					}
				case 'q', 0x03:
					// Quit right away.
					b.Commands <- player.Command{
						Quit: true,
					}
				case 0x08, 0x7F:
					b.Commands <- player.Command{
						Stop: true,
					}
					commandErr = nil
				case 0x1B:
					commandErr = nil
				case ':':
					commandErr = nil
					inputMode = true
				}
			}
		case <-time.After(50 * time.Millisecond):
			// At least 20 fps update.
		}
	}
}

func openSink(config *file.Config) (sequencer.Sink, func(), error) {
	outs, err := player.FindPorts(config)
	if err != nil {
		return nil, nil, fmt.Errorf("could not find MIDI port: %w", err)
	}
	for n, out := range outs {
		log.Printf("Picked output port for MIDI port %d: %v.", n, out)
		if out.IsOpen() {
			continue
		}
		err := out.Open()
		if err != nil {
			return nil, nil, fmt.Errorf("could not open MIDI port %v: %w", out, err)
		}
	}
	portSink, err := output.NewPort(outs...)
	if err != nil {
		return nil, nil, err
	}
	closers := []func(){func() {
		err := portSink.Close()
		if err != nil {
			log.Printf("Failed to close MIDI ports: %v.", err)
		}
	}}
	var sink sequencer.Sink = portSink
	if *dump != "" {
		f, err := os.Create(*dump)
		if err != nil {
			portSink.Close()
			return nil, nil, fmt.Errorf("could not create %v: %w", *dump, err)
		}
		sink = output.Multi{portSink, output.NewDump(f)}
		closers = append(closers, func() { f.Close() })
	}
	return sink, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}

func Main() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %v", err)
	}
	fsys := os.DirFS(cwd)

	config, err := file.ReadConfig(fsys, *c)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	merged := file.Merge(*config, file.Config{
		Port:  *port,
		Loop:  *loop,
		Tempo: *tempo,
	})
	config = &merged

	sink, closeSink, err := openSink(config)
	if err != nil {
		return err
	}
	defer closeSink()

	b := player.NewBackend(&player.Options{
		FSys:     fsys,
		Config:   config,
		Sink:     sink,
		PlayOnly: *i,
	})

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- b.Loop()
		b.Close()
	}()

	err = textModeUI(b, fsys)
	if err != nil {
		return err
	}
	return <-loopErr
}

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.Version())
		return
	}
	err := Main()
	if errors.Is(err, player.SigIntError) {
		os.Exit(127)
	}
	if err != nil && !errors.Is(err, player.QuitError) {
		log.Printf("Exiting due to: %v.", err)
		os.Exit(1)
	}
}
