package file

import (
	"testing"
	"testing/fstest"
	"time"
)

func TestReadConfig(t *testing.T) {
	fsys := fstest.MapFS{
		"player.yml": &fstest.MapFile{Data: []byte(`
port: USB
extra_ports:
  - FLUID
tick_interval_ms: 2
tempo: 1.5
loop: true
end_sleep_sec: 0
`)},
		"broken.yml": &fstest.MapFile{Data: []byte("port: [")},
	}
	c, err := ReadConfig(fsys, "player.yml")
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if c.Port != "USB" || len(c.ExtraPorts) != 1 || c.ExtraPorts[0] != "FLUID" || c.Tempo != 1.5 || !c.Loop {
		t.Errorf("got %+v", c)
	}
	if got := c.TickInterval(); got != 2*time.Millisecond {
		t.Errorf("TickInterval: got %v", got)
	}
	if got := c.EndSleep(); got != 0 {
		t.Errorf("EndSleep: got %v", got)
	}

	c, err = ReadConfig(fsys, "missing.yml")
	if err != nil {
		t.Fatalf("ReadConfig of missing file: %v", err)
	}
	if got := c.TickInterval(); got != 5*time.Millisecond {
		t.Errorf("default TickInterval: got %v", got)
	}
	if got := c.EndSleep(); got != 500*time.Millisecond {
		t.Errorf("default EndSleep: got %v", got)
	}

	if _, err := ReadConfig(fsys, "broken.yml"); err == nil {
		t.Errorf("ReadConfig of broken file succeeded")
	}
}

func TestMerge(t *testing.T) {
	zero := 0.0
	a := Config{Port: "a", Tempo: 2, TickIntervalMS: 3}
	b := Config{Port: "b", Loop: true, EndSleepSec: &zero}
	got := Merge(a, b)
	if got.Port != "b" || got.Tempo != 2 || got.TickIntervalMS != 3 || !got.Loop || got.EndSleepSec == nil || *got.EndSleepSec != 0 {
		t.Errorf("got %+v", got)
	}
}

func TestWithDefault(t *testing.T) {
	if got := WithDefault(0, 5); got != 5 {
		t.Errorf("got %v", got)
	}
	if got := WithDefault(1.5, 1.0); got != 1.5 {
		t.Errorf("got %v", got)
	}
	if got := WithDefault("", "x"); got != "x" {
		t.Errorf("got %v", got)
	}
}
