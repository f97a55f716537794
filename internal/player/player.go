package player

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"reflect"
	"time"

	"github.com/divVerent/midisequencer/internal/file"
	"github.com/divVerent/midisequencer/internal/sequencer"
)

type Command struct {
	// Stop exits the current playback and returns to waiting state.
	Stop bool

	// Quit quits the entire main loop.
	Quit bool

	// PlayOne loads and plays the given file.
	PlayOne string

	// Pause pauses playback and silences all notes.
	Pause bool

	// Resume continues a paused playback.
	Resume bool

	// Rewind restarts playback from the beginning.
	Rewind bool

	// Tempo sets the tempo to a new factor.
	Tempo float64
}

// IsZero returns if the command is an empty message. If so, this likely indicates a closed channel.
func (c Command) IsZero() bool {
	return reflect.DeepEqual(c, Command{})
}

// IsMainLoopCommand returns if the command can only be handled by the main loop.
func (c Command) IsMainLoopCommand() bool {
	return c.Stop || c.Quit || c.PlayOne != "" || c.IsZero()
}

// UIState is the state of the user interface.
type UIState struct {
	// Err is set to show an error message. The backend is still alive and
	// accepts new PlayOne messages.
	Err error

	// CurrentFile is the currently loaded file.
	CurrentFile string

	// Metadata of the current file.
	Title     string
	Copyright string
	Song      string
	NumPorts  int

	// Playing is whether we are currently playing.
	Playing bool

	// Paused is whether playback is paused.
	Paused bool

	// Tempo is the current tempo as a factor of normal.
	Tempo float64

	// PlaybackPosTime is the wall time PlaybackPos was last updated.
	PlaybackPosTime time.Time

	// PlaybackPos is the current playback position.
	PlaybackPos time.Duration

	// PlaybackLen is the length of the current file.
	PlaybackLen time.Duration
}

func (ui UIState) ActualPlaybackPos() time.Duration {
	if !ui.Playing || ui.Paused {
		return ui.PlaybackPos
	}
	delta := time.Duration(float64(time.Since(ui.PlaybackPosTime)) * ui.Tempo)
	return min(ui.PlaybackPos+delta, ui.PlaybackLen)
}

func (ui UIState) ActualPlaybackFraction() float64 {
	if ui.PlaybackLen <= 0 {
		return 0
	}
	return float64(ui.ActualPlaybackPos()) / float64(ui.PlaybackLen)
}

type Backend struct {
	// Commands can be used to send commands to the backend.
	Commands chan Command

	// UIStates receives updates to the UI state non-blockingly.
	UIStates chan UIState

	// fsys is the file system MIDI files are loaded from.
	fsys fs.FS

	// The configuration data.
	config file.Config

	// sink receives all played events.
	sink sequencer.Sink

	// seq holds the loaded file.
	seq *sequencer.Sequencer

	// The current UI state. Sent to the client on every update, nonblockingly.
	uiState UIState

	// The next command to be executed. Commands that cannot be processed
	// during playback are enqueued here and handled by the main loop. There
	// can be only one.
	nextCommand *Command

	// If set, running the main loop will just play this.
	playOnly string
}

type Options struct {
	// FSys is the file system to load MIDI files from.
	FSys fs.FS

	// Config is the player configuration.
	Config *file.Config

	// Sink receives the played events.
	Sink sequencer.Sink

	// PlayOnly is the single file to play.
	PlayOnly string
}

func NewBackend(options *Options) *Backend {
	return &Backend{
		Commands: make(chan Command, 10),
		UIStates: make(chan UIState, 100),
		fsys:     options.FSys,
		config:   *options.Config,
		sink:     options.Sink,
		seq:      sequencer.New(),
		uiState: UIState{
			Tempo: file.WithDefault(options.Config.Tempo, 1.0),
		},
		playOnly: options.PlayOnly,
	}
}

func (b *Backend) sendUIState() {
	select {
	case b.UIStates <- b.uiState:
		return
	default:
		log.Printf("Tried to send an UI state, but nobody came.")
		return
	}
}

var SigIntError = errors.New("SIGINT caught")
var sigInt = make(chan os.Signal, 1)

func init() {
	signal.Notify(sigInt, os.Interrupt)
}

var exitPlaybackError = errors.New("exiting playback")

// uiPosInterval is how often the playback position is sent to the UI.
const uiPosInterval = 100 * time.Millisecond

func duration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}

// handleCommandDuringPlayback handles a command while playing. pos is the
// current playback position and is updated by rewinds.
func (b *Backend) handleCommandDuringPlayback(cmd Command, pos *time.Duration) error {
	if cmd.IsMainLoopCommand() {
		return exitPlaybackError
	}
	switch {
	case cmd.Pause:
		if !b.uiState.Paused {
			b.uiState.Paused = true
			b.sink.Reset()
		}
	case cmd.Resume:
		b.uiState.Paused = false
	case cmd.Rewind:
		*pos = 0
		// Playing at time zero moves the cursor back to the start. The sink
		// is reset once playback passes the first event again.
		b.seq.Play(0, b.sink)
	case cmd.Tempo > 0:
		b.uiState.Tempo = cmd.Tempo
	default:
		return fmt.Errorf("unrecognized command: %+v", cmd)
	}
	b.uiState.PlaybackPos = *pos
	b.uiState.PlaybackPosTime = time.Now()
	b.sendUIState()
	return nil
}

// play plays the loaded sequence on the current thread.
func (b *Backend) play() error {
	length := duration(b.seq.TotalTime())
	b.uiState.Playing = true
	b.uiState.Paused = false
	b.uiState.PlaybackLen = length
	b.uiState.PlaybackPos = 0
	b.uiState.PlaybackPosTime = time.Now()
	b.sendUIState()

	defer func() {
		b.sink.Reset()
		b.uiState.Playing = false
		b.uiState.Paused = false
		b.uiState.PlaybackLen = 0
		b.uiState.PlaybackPos = 0
		b.uiState.PlaybackPosTime = time.Time{}
		b.sendUIState()
	}()

	ticker := time.NewTicker(b.config.TickInterval())
	defer ticker.Stop()

	var pos time.Duration
	prevNow := time.Now()
	lastUIUpdate := prevNow
	end := length + b.config.EndSleep()
	b.seq.Rewind()

	for {
		select {
		case <-sigInt:
			return SigIntError
		case cmd, ok := <-b.Commands:
			if !ok {
				cmd = Command{}
			}
			err := b.handleCommandDuringPlayback(cmd, &pos)
			if errors.Is(err, exitPlaybackError) {
				if b.nextCommand != nil {
					log.Panicf("Unreachable code: already have a next command!")
				}
				b.nextCommand = &cmd
				return err
			}
			if err != nil {
				log.Printf("Ignoring command: %v.", err)
			}
		case now := <-ticker.C:
			delta := now.Sub(prevNow)
			prevNow = now
			if b.uiState.Paused {
				continue
			}
			pos += time.Duration(float64(delta) * b.uiState.Tempo)
			b.seq.Play(pos.Seconds(), b.sink)
			if now.Sub(lastUIUpdate) >= uiPosInterval {
				lastUIUpdate = now
				b.uiState.PlaybackPos = min(pos, length)
				b.uiState.PlaybackPosTime = now
				b.sendUIState()
			}
			if !b.seq.Done() || pos < end {
				continue
			}
			if !b.config.Loop {
				return nil
			}
			log.Printf("Looping %v.", b.uiState.CurrentFile)
			pos = 0
			b.seq.Play(0, b.sink)
		}
	}
}

// playOne loads and plays the given file.
func (b *Backend) playOne(name string) error {
	err := file.Load(b.fsys, name, b.seq)
	if err != nil {
		return fmt.Errorf("failed to load: %w", err)
	}

	b.uiState.CurrentFile = name
	b.uiState.Title = b.seq.Title()
	b.uiState.Copyright = b.seq.Copyright()
	b.uiState.Song = b.seq.Song()
	b.uiState.NumPorts = b.seq.NumPorts()
	defer func() {
		b.uiState.CurrentFile = ""
		b.uiState.Title = ""
		b.uiState.Copyright = ""
		b.uiState.Song = ""
		b.uiState.NumPorts = 0
		b.sendUIState()
	}()

	log.Printf("Playing %v (%q, %.1f seconds, %d ports).", name, b.uiState.Title, b.seq.TotalTime(), b.uiState.NumPorts)
	return b.play()
}

var QuitError = errors.New("intentionally quitting")

func (b *Backend) handleMainLoopCommand(cmd Command) error {
	if !cmd.IsMainLoopCommand() {
		// Playback commands are meaningless when nothing is playing, except
		// for the tempo which carries over.
		if cmd.Tempo > 0 {
			b.uiState.Tempo = cmd.Tempo
		}
		return nil
	}
	switch {
	case cmd.Stop:
		return nil
	case cmd.Quit:
		return QuitError
	case cmd.PlayOne != "":
		return b.playOne(cmd.PlayOne)
	case cmd.IsZero():
		// Closed channel.
		return QuitError
	default:
		return fmt.Errorf("unrecognized main loop command: %+v", cmd)
	}
}

func (b *Backend) Loop() error {
	b.uiState.Err = nil

	// If only one file should be played, set it here.
	if b.playOnly != "" {
		b.sendUIState()
		err := b.playOne(b.playOnly)
		if err != nil && !errors.Is(err, exitPlaybackError) {
			return err
		}
		return QuitError
	}

	for {
		b.sendUIState()
		var cmd Command
		if b.nextCommand != nil {
			cmd = *b.nextCommand
			b.nextCommand = nil
		} else {
			cmd = <-b.Commands
		}
		b.uiState.Err = nil
		err := b.handleMainLoopCommand(cmd)
		if errors.Is(err, SigIntError) || errors.Is(err, QuitError) {
			return err
		} else if errors.Is(err, exitPlaybackError) {
			continue
		} else if err != nil {
			log.Printf("Playback failed: %v.", err)
			b.uiState.Err = err
			// Updated on next iteration.
		}
	}
}

func (b *Backend) Close() {
	close(b.UIStates)
}
