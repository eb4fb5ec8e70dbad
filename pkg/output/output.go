// Package output implements the Output component from §4.5: a structured
// sink for debug/info/warning/error/success/exception/progress events, with
// the facade's general-vs-post-daemonize sink-list swap.
package output

import (
	"fmt"

	"go.uber.org/zap"
)

// Sink is the narrow capability every output backend implements. Modeled
// as a flat interface rather than a shared base class per the design
// notes' redesign of the original's mixed trait/inheritance helpers.
type Sink interface {
	Error(format string, args ...any)
	Warning(format string, args ...any)
	Info(format string, args ...any)
	Debug(format string, args ...any)
	Success(format string, args ...any)
	Exception(err error)
	ProgressBar(total int, start int)
	ProgressTick()
}

// ZapSink backs Sink with a *zap.SugaredLogger plus a simple stdout
// progress bar, since terminal styling itself is out of scope (§1).
type ZapSink struct {
	log      *zap.SugaredLogger
	prefix   string
	progress *progressState
}

func NewZapSink(log *zap.SugaredLogger, prefix string) *ZapSink {
	return &ZapSink{log: log, prefix: prefix}
}

func (s *ZapSink) tag(format string) string {
	if s.prefix == "" {
		return format
	}
	return s.prefix + ": " + format
}

func (s *ZapSink) Error(format string, args ...any)   { s.log.Errorf(s.tag(format), args...) }
func (s *ZapSink) Warning(format string, args ...any) { s.log.Warnf(s.tag(format), args...) }
func (s *ZapSink) Info(format string, args ...any)    { s.log.Infof(s.tag(format), args...) }
func (s *ZapSink) Debug(format string, args ...any)   { s.log.Debugf(s.tag(format), args...) }
func (s *ZapSink) Success(format string, args ...any) { s.log.Infof(s.tag(format), args...) }
func (s *ZapSink) Exception(err error) {
	if err == nil {
		return
	}
	s.log.Errorw(s.tag("%v"), "error", err)
}

type progressState struct {
	total int
	done  int
}

func (s *ZapSink) ProgressBar(total int, start int) {
	s.progress = &progressState{total: total, done: start}
	fmt.Printf("[%d/%d]\n", s.progress.done, s.progress.total)
}

func (s *ZapSink) ProgressTick() {
	if s.progress == nil {
		return
	}
	s.progress.done++
	fmt.Printf("[%d/%d]\n", s.progress.done, s.progress.total)
}

// noopDebugSink wraps a Sink and silences Debug — used for the
// post-daemonize sink list, where §4.5 requires "debug becomes a no-op".
type noopDebugSink struct{ Sink }

func (noopDebugSink) Debug(format string, args ...any) {}

// Facade holds the general and post-daemonize sink lists and fans every
// call out to whichever list is currently active, replacing the global
// Output singleton the design notes call out for removal.
type Facade struct {
	general       []Sink
	postDaemonize []Sink
	daemonized    bool
}

func NewFacade() *Facade {
	return &Facade{}
}

func (f *Facade) AddGeneralSink(s Sink)       { f.general = append(f.general, s) }
func (f *Facade) AddPostDaemonizeSink(s Sink) { f.postDaemonize = append(f.postDaemonize, noopDebugSink{s}) }

// Daemonize swaps the active sink list from general to post-daemonize, per
// §4.5: "When the master daemonizes, the general list is replaced by the
// post-daemonize list and debug becomes a no-op."
func (f *Facade) Daemonize() { f.daemonized = true }

func (f *Facade) active() []Sink {
	if f.daemonized {
		return f.postDaemonize
	}
	return f.general
}

func (f *Facade) Error(format string, args ...any) {
	for _, s := range f.active() {
		s.Error(format, args...)
	}
}
func (f *Facade) Warning(format string, args ...any) {
	for _, s := range f.active() {
		s.Warning(format, args...)
	}
}
func (f *Facade) Info(format string, args ...any) {
	for _, s := range f.active() {
		s.Info(format, args...)
	}
}
func (f *Facade) Debug(format string, args ...any) {
	for _, s := range f.active() {
		s.Debug(format, args...)
	}
}
func (f *Facade) Success(format string, args ...any) {
	for _, s := range f.active() {
		s.Success(format, args...)
	}
}
func (f *Facade) Exception(err error) {
	for _, s := range f.active() {
		s.Exception(err)
	}
}
func (f *Facade) ProgressBar(total, start int) {
	for _, s := range f.active() {
		s.ProgressBar(total, start)
	}
}
func (f *Facade) ProgressTick() {
	for _, s := range f.active() {
		s.ProgressTick()
	}
}
