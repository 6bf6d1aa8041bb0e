package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"studymate/audio"
	"studymate/clipboard"
	"studymate/config"
	"studymate/doctor"
	"studymate/hotkey"
	"studymate/log"
	"studymate/recorder"
	"studymate/transcriber"
)

var version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "studymate",
	Short:         "Record spoken notes and browse their transcriptions",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is studymate.yaml in the user config dir or .)")
	config.RegisterFlags(rootCmd.PersistentFlags())
	rootCmd.Flags().Bool("setup", false, "pick the microphone interactively before starting")

	scriptCmd.Flags().String("wav", "", "replay this WAV file instead of the microphone")
	scriptCmd.Flags().Bool("realtime", false, "pace the replayed WAV like a live microphone")

	rootCmd.AddCommand(notesCmd, devicesCmd, scriptCmd, listenCmd, doctorCmd, versionCmd)
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads and validates the merged configuration, then opens the
// log files under the configured directory.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	setupLogging(cfg)
	return cfg, nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func deviceLineText(name string) string {
	suffix := ""
	if audio.IsBluetooth(name) {
		suffix = " (BT!)"
	}
	return "mic: " + name + suffix
}

// tracked lets the TUI wait for an in-flight submission before exiting.
type tracked struct {
	actions
	wg sync.WaitGroup
}

func (t *tracked) Stop(ctx context.Context) error {
	t.wg.Add(1)
	defer t.wg.Done()
	return t.actions.Stop(ctx)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer log.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	setup, _ := cmd.Flags().GetBool("setup")
	ac := openAudio()
	dev := resolveDevice(ac, cfg.Device, setup)

	sink := &programSink{}
	a, err := newApp(cfg, appOptions{audio: ac, device: dev, sink: sink, observer: sink.Observe})
	if err != nil {
		ac.Close()
		return err
	}
	defer a.Close()

	acts := &tracked{actions: a}
	m := newTUIModel(ctx, acts, a.monitor)
	m.deviceLine = deviceLineText(a.ctrl.DeviceName())
	m.endpoint = cfg.Endpoint
	m.minDuration = cfg.MinDuration
	if clipboard.Available() {
		m.copyNote = func(n transcriber.Note) error { return clipboard.CopyNotes(n) }
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	sink.set(p)

	go a.client.Warm(ctx)
	if cfg.FetchOnStart {
		go a.Refresh(ctx)
	}

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	sink.set(nil)

	if s := a.Snapshot(); s.State == recorder.Recording {
		acts.Stop(context.WithoutCancel(ctx))
	}
	acts.wg.Wait()
	return nil
}

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Print the transcribed notes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		defer log.Close()

		ctx, cancel := signalContext(cmd)
		defer cancel()

		client, err := transcriber.NewClient(cfg.Endpoint, transcriber.WithTimeout(cfg.Timeout))
		if err != nil {
			return err
		}
		notes, err := client.FetchNotes(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(notes) == 0 {
			fmt.Fprintln(out, "No transcribed notes yet. Record something!")
			return nil
		}
		for _, n := range notes {
			fmt.Fprintln(out, noteLine(n))
		}
		return nil
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List capture devices",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ac, err := audio.NewContext()
		if err != nil {
			return fmt.Errorf("initializing audio: %w", err)
		}
		defer ac.Close()
		return audio.ListDevices(cmd.OutOrStdout(), ac)
	},
}

var scriptCmd = &cobra.Command{
	Use:   "script",
	Short: "Drive recordings from commands on stdin (START, STOP, WAIT, NOTES, STATE, SAVE, SLEEP, QUIT)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		defer log.Close()

		ctx, cancel := signalContext(cmd)
		defer cancel()

		out := &lockedWriter{w: cmd.OutOrStdout()}

		var ac audio.Context
		var dev *audio.DeviceInfo
		if wav, _ := cmd.Flags().GetString("wav"); wav != "" {
			realtime, _ := cmd.Flags().GetBool("realtime")
			fake, err := audio.NewFakeContext(wav, realtime)
			if err != nil {
				return err
			}
			ac = fake
		} else {
			ac = openAudio()
			dev = resolveDevice(ac, cfg.Device, false)
		}

		a, err := newApp(cfg, appOptions{
			audio:    ac,
			device:   dev,
			sink:     &printSink{w: out},
			observer: func(s recorder.Snapshot) { fmt.Fprintln(out, stateLine(s)) },
		})
		if err != nil {
			ac.Close()
			return err
		}
		defer a.Close()

		return runScript(ctx, a, cmd.InOrStdin(), out)
	},
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Record with the global hotkey, without a terminal UI",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		defer log.Close()

		ctx, cancel := signalContext(cmd)
		defer cancel()

		out := &lockedWriter{w: cmd.OutOrStdout()}
		ac := openAudio()
		a, err := newApp(cfg, appOptions{
			audio:  ac,
			device: resolveDevice(ac, cfg.Device, false),
			sink:   &printSink{w: out},
		})
		if err != nil {
			ac.Close()
			return err
		}
		defer a.Close()

		go a.client.Warm(ctx)
		return runListen(ctx, a, hotkey.New(), out)
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run system diagnostics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}

		ac, err := audio.NewContext()
		if err != nil {
			ac = audio.Unavailable(err)
		}

		o := doctor.Options{
			Audio:  ac,
			Format: cfg.Format,
			Out:    cmd.OutOrStdout(),
		}
		if cfg.Device != "" {
			o.Device, _ = audio.FindDevice(ac, cfg.Device)
		}
		if cfg.Endpoint != "" {
			if client, err := transcriber.NewClient(cfg.Endpoint, transcriber.WithTimeout(cfg.Timeout)); err == nil {
				o.Client = client
			}
		}

		code := doctor.Run(cmd.Context(), o)
		ac.Close()
		if code != 0 {
			os.Exit(code)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "studymate %s\n", version)
	},
}
