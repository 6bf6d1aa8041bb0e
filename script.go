package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"studymate/recorder"
	"studymate/transcriber"
)

// lockedWriter serializes output from the command loop and the recorder's
// observer goroutine.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func stateLine(s recorder.Snapshot) string {
	line := fmt.Sprintf("STATE %s %q", s.State, s.StatusText)
	if s.Loading {
		line += " loading"
	}
	return line
}

func errorLine(err error) string {
	return fmt.Sprintf("ERROR %s %s", recorder.KindOf(err), err)
}

func noteLine(n transcriber.Note) string {
	content := strings.ReplaceAll(n.NoteContent, "\n", " ")
	return fmt.Sprintf("NOTE %s\t%s\t%s", n.NoteID, n.Time().Format("2006-01-02 15:04:05"), content)
}

type actions interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Refresh(ctx context.Context) error
	SaveLast(path string) (string, error)
	Snapshot() recorder.Snapshot
}

// runScript drives the recorder from line commands:
//
//	START            begin recording
//	STOP             stop and submit in the background
//	WAIT             wait for the last STOP to finish
//	NOTES            refresh and print the note collection
//	STATE            print the current state
//	SAVE [path]      write the last recording
//	SLEEP <ms>
//	QUIT
func runScript(ctx context.Context, r actions, in io.Reader, out io.Writer) error {
	var pending sync.WaitGroup
	defer pending.Wait()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		switch strings.ToUpper(cmd) {
		case "START":
			if err := r.Start(ctx); err != nil {
				fmt.Fprintln(out, errorLine(err))
			}
		case "STOP":
			pending.Add(1)
			go func() {
				defer pending.Done()
				if err := r.Stop(ctx); err != nil {
					fmt.Fprintln(out, errorLine(err))
				}
			}()
		case "WAIT":
			pending.Wait()
		case "NOTES":
			if err := r.Refresh(ctx); err != nil {
				fmt.Fprintln(out, errorLine(err))
			}
			s := r.Snapshot()
			fmt.Fprintf(out, "NOTES %d\n", len(s.Notes))
			for _, n := range s.Notes {
				fmt.Fprintln(out, noteLine(n))
			}
		case "STATE":
			fmt.Fprintln(out, stateLine(r.Snapshot()))
		case "SAVE":
			path, err := r.SaveLast(arg)
			if err != nil {
				fmt.Fprintf(out, "ERROR save %v\n", err)
				continue
			}
			fmt.Fprintf(out, "SAVED %s\n", path)
		case "SLEEP":
			ms, err := strconv.Atoi(arg)
			if err != nil {
				fmt.Fprintf(out, "ERROR script bad SLEEP argument %q\n", arg)
				continue
			}
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		case "QUIT":
			return nil
		default:
			fmt.Fprintf(out, "ERROR script unknown command %q\n", cmd)
		}
	}
	return scanner.Err()
}

func (a *app) Snapshot() recorder.Snapshot { return a.rec.Snapshot() }
