package player

import (
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"github.com/divVerent/midisequencer/internal/file"
	"github.com/divVerent/midisequencer/internal/output"
)

// midiFile returns a format 0 file at 96 ticks per quarter note and the
// default tempo, playing a note from tick 0 to tick off.
func midiFile(off uint16) []byte {
	hi, lo := byte(0x80|off>>7), byte(off&0x7F)
	body := []byte{
		0, 0x90, 60, 100,
		hi, lo, 0x80, 60, 0,
		0, 0xFF, 0x2F, 0,
	}
	n := len(body)
	data := []byte{
		'M', 'T', 'h', 'd', 0, 0, 0, 6, 0, 0, 0, 1, 0, 96,
		'M', 'T', 'r', 'k', byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n),
	}
	return append(data, body...)
}

func testBackend(sink *output.Recorder, playOnly string) *Backend {
	endSleep := 0.0
	return NewBackend(&Options{
		FSys: fstest.MapFS{
			"short.mid": &fstest.MapFile{Data: midiFile(4)},
			"long.mid":  &fstest.MapFile{Data: midiFile(96 * 20)},
		},
		Config: &file.Config{
			TickIntervalMS: 1,
			EndSleepSec:    &endSleep,
		},
		Sink:     sink,
		PlayOnly: playOnly,
	})
}

// waitFor reads UI states until one satisfies cond.
func waitFor(t *testing.T, b *Backend, what string, cond func(ui UIState) bool) UIState {
	t.Helper()
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ui := <-b.UIStates:
			if cond(ui) {
				return ui
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %v", what)
		}
	}
}

func TestCommand(t *testing.T) {
	for _, tc := range []struct {
		cmd      Command
		zero     bool
		mainLoop bool
	}{
		{Command{}, true, true},
		{Command{Quit: true}, false, true},
		{Command{Stop: true}, false, true},
		{Command{PlayOne: "a.mid"}, false, true},
		{Command{Pause: true}, false, false},
		{Command{Resume: true}, false, false},
		{Command{Rewind: true}, false, false},
		{Command{Tempo: 1.5}, false, false},
	} {
		if got := tc.cmd.IsZero(); got != tc.zero {
			t.Errorf("%+v.IsZero(): got %v, want %v", tc.cmd, got, tc.zero)
		}
		if got := tc.cmd.IsMainLoopCommand(); got != tc.mainLoop {
			t.Errorf("%+v.IsMainLoopCommand(): got %v, want %v", tc.cmd, got, tc.mainLoop)
		}
	}
}

func TestActualPlaybackPos(t *testing.T) {
	paused := UIState{
		Playing:         true,
		Paused:          true,
		Tempo:           1,
		PlaybackPosTime: time.Now().Add(-time.Hour),
		PlaybackPos:     time.Second,
		PlaybackLen:     4 * time.Second,
	}
	if got := paused.ActualPlaybackPos(); got != time.Second {
		t.Errorf("paused: got %v, want 1s", got)
	}
	if got := paused.ActualPlaybackFraction(); got != 0.25 {
		t.Errorf("paused: got fraction %v, want 0.25", got)
	}
	playing := paused
	playing.Paused = false
	if got := playing.ActualPlaybackPos(); got != 4*time.Second {
		t.Errorf("playing: got %v, want 4s", got)
	}
	if got := (UIState{}).ActualPlaybackFraction(); got != 0 {
		t.Errorf("idle: got fraction %v, want 0", got)
	}
}

func TestPlayOnly(t *testing.T) {
	sink := &output.Recorder{}
	b := testBackend(sink, "short.mid")
	err := b.Loop()
	if !errors.Is(err, QuitError) {
		t.Fatalf("Loop: got %v, want QuitError", err)
	}
	if got := sink.Count("short"); got != 2 {
		t.Errorf("got %d short messages, want 2", got)
	}
	if got := sink.Count("meta"); got != 1 {
		t.Errorf("got %d meta events, want 1", got)
	}
	// Once before the first event and once when playback ends.
	if got := sink.Count("reset"); got != 2 {
		t.Errorf("got %d resets, want 2", got)
	}
	if sink.Calls[0].Kind != "reset" || sink.Calls[len(sink.Calls)-1].Kind != "reset" {
		t.Errorf("calls do not start and end with a reset: %+v", sink.Calls)
	}
}

func TestPlayOnlyMissingFile(t *testing.T) {
	b := testBackend(&output.Recorder{}, "missing.mid")
	err := b.Loop()
	if err == nil || errors.Is(err, QuitError) {
		t.Errorf("Loop: got %v, want load failure", err)
	}
}

func TestCommands(t *testing.T) {
	sink := &output.Recorder{}
	b := testBackend(sink, "")
	done := make(chan error, 1)
	go func() {
		done <- b.Loop()
	}()

	b.Commands <- Command{PlayOne: "missing.mid"}
	waitFor(t, b, "load error", func(ui UIState) bool { return ui.Err != nil })

	b.Commands <- Command{PlayOne: "long.mid"}
	ui := waitFor(t, b, "playback", func(ui UIState) bool { return ui.Playing })
	if ui.CurrentFile != "long.mid" || ui.PlaybackLen != 10*time.Second || ui.NumPorts != 1 {
		t.Errorf("unexpected playing state: %+v", ui)
	}

	b.Commands <- Command{Pause: true}
	waitFor(t, b, "pause", func(ui UIState) bool { return ui.Paused })
	b.Commands <- Command{Resume: true}
	waitFor(t, b, "resume", func(ui UIState) bool { return ui.Playing && !ui.Paused })
	b.Commands <- Command{Tempo: 2}
	waitFor(t, b, "tempo", func(ui UIState) bool { return ui.Tempo == 2 })
	b.Commands <- Command{Rewind: true}
	b.Commands <- Command{Stop: true}
	waitFor(t, b, "stop", func(ui UIState) bool { return !ui.Playing && ui.CurrentFile == "" })

	b.Commands <- Command{Quit: true}
	select {
	case err := <-done:
		if !errors.Is(err, QuitError) {
			t.Errorf("Loop: got %v, want QuitError", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("Loop did not quit")
	}

	// The note off at 10 seconds was never reached. The note on may have
	// been played again after the rewind.
	if got := sink.Count("short"); got > 2 {
		t.Errorf("got %d short messages", got)
	}
	if last := sink.Calls[len(sink.Calls)-1]; last.Kind != "reset" {
		t.Errorf("playback did not end with a reset: %+v", last)
	}
}

func TestClosedCommandsQuit(t *testing.T) {
	b := testBackend(&output.Recorder{}, "")
	close(b.Commands)
	if err := b.Loop(); !errors.Is(err, QuitError) {
		t.Errorf("Loop: got %v, want QuitError", err)
	}
}
