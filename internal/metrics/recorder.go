// Package metrics exposes service counters. Components take a Recorder and
// default to NoopRecorder, so metrics stay optional in the CLI.
package metrics

import "time"

// Recorder receives build and HTTP observations.
type Recorder interface {
	ObserveRequest(method, route string, status int, d time.Duration)
	IncJobOutcome(outcome string)
	ObserveJobDuration(d time.Duration)
	IncIssue(code, severity string)
	SetQueueDepth(n int)
}

// NoopRecorder drops every observation.
type NoopRecorder struct{}

func (NoopRecorder) ObserveRequest(string, string, int, time.Duration) {}
func (NoopRecorder) IncJobOutcome(string)                              {}
func (NoopRecorder) ObserveJobDuration(time.Duration)                  {}
func (NoopRecorder) IncIssue(string, string)                           {}
func (NoopRecorder) SetQueueDepth(int)                                 {}
