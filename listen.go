package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"studymate/hotkey"
)

const longPress = 350 * time.Millisecond

// runListen records on the global hotkey until ctx is cancelled. A tap
// toggles recording; holding the combo records until release.
func runListen(ctx context.Context, r actions, hk hotkey.Hotkey, out io.Writer) error {
	if err := hk.Register(); err != nil {
		return fmt.Errorf("registering %s: %w", hotkey.Combo, err)
	}
	defer hk.Unregister()

	fmt.Fprintf(out, "Listening. %s to record, Ctrl+C to quit.\n", hotkey.Combo)

	var pending sync.WaitGroup
	defer pending.Wait()

	tg := hotkey.NewToggle(ctx, hk, longPress)
	for ev := range tg.Events() {
		switch ev {
		case hotkey.Start:
			if err := r.Start(ctx); err != nil {
				fmt.Fprintln(out, errorLine(err))
			}
		case hotkey.Stop:
			pending.Add(1)
			go func() {
				defer pending.Done()
				if err := r.Stop(ctx); err != nil {
					fmt.Fprintln(out, errorLine(err))
				}
			}()
		}
	}
	return nil
}
