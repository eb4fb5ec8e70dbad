package output

import "testing"

type recordingSink struct {
	infos   []string
	debugs  []string
	ticks   int
	barSeen bool
}

func (r *recordingSink) Error(format string, args ...any)   {}
func (r *recordingSink) Warning(format string, args ...any) {}
func (r *recordingSink) Info(format string, args ...any)    { r.infos = append(r.infos, format) }
func (r *recordingSink) Debug(format string, args ...any)   { r.debugs = append(r.debugs, format) }
func (r *recordingSink) Success(format string, args ...any) {}
func (r *recordingSink) Exception(err error)                {}
func (r *recordingSink) ProgressBar(total, start int)       { r.barSeen = true }
func (r *recordingSink) ProgressTick()                      { r.ticks++ }

func TestFacadeFansOutToGeneralSinksByDefault(t *testing.T) {
	f := NewFacade()
	general := &recordingSink{}
	post := &recordingSink{}
	f.AddGeneralSink(general)
	f.AddPostDaemonizeSink(post)

	f.Info("starting")
	if len(general.infos) != 1 {
		t.Fatalf("general sink saw %d Info calls, want 1", len(general.infos))
	}
	if len(post.infos) != 0 {
		t.Fatalf("post-daemonize sink should not see calls before Daemonize(), got %d", len(post.infos))
	}
}

func TestDaemonizeSwapsActiveSinkList(t *testing.T) {
	f := NewFacade()
	general := &recordingSink{}
	post := &recordingSink{}
	f.AddGeneralSink(general)
	f.AddPostDaemonizeSink(post)

	f.Daemonize()
	f.Info("after daemonize")

	if len(general.infos) != 0 {
		t.Error("general sink should not receive calls after Daemonize()")
	}
	if len(post.infos) != 1 {
		t.Error("post-daemonize sink should receive calls after Daemonize()")
	}
}

func TestPostDaemonizeDebugIsNoop(t *testing.T) {
	f := NewFacade()
	post := &recordingSink{}
	f.AddPostDaemonizeSink(post)
	f.Daemonize()

	f.Debug("should be silenced")
	if len(post.debugs) != 0 {
		t.Errorf("Debug after daemonize should be a no-op, got %d calls", len(post.debugs))
	}
}

func TestProgressBarAndTickFanOut(t *testing.T) {
	f := NewFacade()
	s := &recordingSink{}
	f.AddGeneralSink(s)

	f.ProgressBar(3, 0)
	f.ProgressTick()
	f.ProgressTick()

	if !s.barSeen {
		t.Error("ProgressBar should have reached the sink")
	}
	if s.ticks != 2 {
		t.Errorf("ticks = %d, want 2", s.ticks)
	}
}
