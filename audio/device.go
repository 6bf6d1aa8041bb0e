package audio

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ListDevices prints one capture device per line, marking headsets.
func ListDevices(w io.Writer, ctx Context) error {
	devices, err := ctx.Devices()
	if err != nil {
		return fmt.Errorf("enumerating devices: %w", err)
	}
	if len(devices) == 0 {
		fmt.Fprintln(w, "no capture devices found")
		return nil
	}
	for _, d := range devices {
		tag := ""
		if IsBluetooth(d.Name) {
			tag = " (bluetooth)"
		}
		fmt.Fprintf(w, "%s%s\n", d.Name, tag)
	}
	return nil
}

// SelectDevice presents an interactive device picker on the terminal.
// With a single device it returns that device without prompting; nil with a
// nil error means the user cancelled.
func SelectDevice(ctx Context) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	switch len(devices) {
	case 0:
		return nil, fmt.Errorf("no capture devices found")
	case 1:
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	p := picker{n: len(devices)}
	render := func() {
		fmt.Print("\r\x1b[J")
		fmt.Print("Select input device (↑/↓, Enter to confirm, Esc to cancel):\r\n\r\n")
		for i, d := range devices {
			btTag := ""
			if IsBluetooth(d.Name) {
				btTag = " \x1b[33m[lower audio quality]\x1b[0m"
			}
			if i == p.cursor {
				fmt.Printf("  \x1b[1;36m▶ %s%s\x1b[0m\r\n", d.Name, btTag)
			} else {
				fmt.Printf("    %s%s\r\n", d.Name, btTag)
			}
		}
	}
	render()

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
		switch p.key(buf[:n]) {
		case pickerChosen:
			fmt.Print("\r\n")
			return &devices[p.cursor], nil
		case pickerCancelled:
			fmt.Print("\r\n")
			return nil, nil
		}
		fmt.Printf("\x1b[%dA", len(devices)+2)
		render()
	}
}

type pickerResult int

const (
	pickerMoved pickerResult = iota
	pickerChosen
	pickerCancelled
)

type picker struct {
	n      int
	cursor int
}

func (p *picker) key(in []byte) pickerResult {
	switch {
	case len(in) == 1 && (in[0] == '\r' || in[0] == '\n'):
		return pickerChosen
	case len(in) == 1 && (in[0] == 3 || in[0] == 0x1b || in[0] == 'q'):
		return pickerCancelled
	case len(in) == 1 && in[0] == 'j', len(in) == 3 && in[0] == 0x1b && in[1] == '[' && in[2] == 'B':
		if p.cursor < p.n-1 {
			p.cursor++
		}
	case len(in) == 1 && in[0] == 'k', len(in) == 3 && in[0] == 0x1b && in[1] == '[' && in[2] == 'A':
		if p.cursor > 0 {
			p.cursor--
		}
	}
	return pickerMoved
}
