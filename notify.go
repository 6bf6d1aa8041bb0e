package main

import (
	"fmt"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"studymate/log"
	"studymate/recorder"
)

// logSink records every notification in the diagnostics log.
type logSink struct{}

func (logSink) Notify(title, description string, status recorder.Status) {
	if status == recorder.StatusError {
		log.Errorf("notify: %s: %s", title, description)
		return
	}
	log.Infof("notify: %s: %s", title, description)
}

// printSink writes one line per notification, for headless modes.
type printSink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *printSink) Notify(title, description string, status recorder.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "NOTIFY %s %s: %s\n", status, title, description)
}

type toastMsg struct {
	Title       string
	Description string
	Status      recorder.Status
}

type snapshotMsg struct{ Snapshot recorder.Snapshot }

// programSink forwards to the TUI once the program exists.
type programSink struct {
	mu sync.Mutex
	p  *tea.Program
}

func (s *programSink) set(p *tea.Program) {
	s.mu.Lock()
	s.p = p
	s.mu.Unlock()
}

func (s *programSink) send(msg tea.Msg) {
	s.mu.Lock()
	p := s.p
	s.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (s *programSink) Notify(title, description string, status recorder.Status) {
	s.send(toastMsg{Title: title, Description: description, Status: status})
}

func (s *programSink) Observe(snap recorder.Snapshot) {
	s.send(snapshotMsg{Snapshot: snap})
}
