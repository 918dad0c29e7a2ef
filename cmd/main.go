package main

import (
	"chordtuner"
	"chordtuner/logging"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mdobak/go-xerrors"
	"golang.org/x/sync/errgroup"
)

const usage = `usage:
  chordtuner devices
  chordtuner chord [-device name] [-file in.wav] [-record out.wav] [-meter port]
  chordtuner tune  [-instrument guitar] [-device name] [-file in.wav] [-record out.wav] [-meter port]
`

func main() {
	_ = godotenv.Load()

	logger := logging.NewDefaultLogger()
	if lvl, ok := logging.ParseLevel(os.Getenv("CHORDTUNER_LOG_LEVEL")); ok {
		logger.SetLevel(lvl)
	}
	logging.SetGlobalLogger(logger)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch cmd := os.Args[1]; cmd {
	case "devices":
		err = listDevices()
	case "chord", "tune", "tuner":
		err = listen(cmd, os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		logging.Error(err, "chordtuner failed")
		logging.Debug(xerrors.Sprint(err))
		os.Exit(1)
	}
}

func listDevices() error {
	devices, err := chordtuner.ListInputDevices()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("no input devices")
		return nil
	}
	for _, d := range devices {
		mark := " "
		if d.Default {
			mark = "*"
		}
		fmt.Printf("%s %s\n", mark, d.Name)
	}
	return nil
}

func listen(cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	instrument := fs.String("instrument", "guitar", "instrument profile: "+strings.Join(chordtuner.ProfileNames(), ", "))
	device := fs.String("device", "", "input device name (substring), default device if empty")
	inputFile := fs.String("file", "", "replay a wav file instead of the microphone")
	recordFile := fs.String("record", "", "record captured audio to a wav file")
	meterPort := fs.String("meter", "", "serial port of an external meter")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := chordtuner.DefaultConfig()
	if err := chordtuner.LoadEnv(cfg); err != nil {
		return err
	}
	if *device != "" {
		cfg.Capture.DeviceName = *device
	}
	if *meterPort != "" {
		cfg.Meter.Port = *meterPort
	}

	mode, err := chordtuner.ParseMode(cmd)
	if err != nil {
		return err
	}
	profile, err := chordtuner.LookupProfile(*instrument)
	if err != nil {
		return err
	}

	var opener chordtuner.DeviceOpener
	if *inputFile != "" {
		opener = chordtuner.OpenReplay(*inputFile)
	}
	source := chordtuner.NewFrameSource(cfg, opener)

	if *recordFile != "" {
		rec := chordtuner.NewRecorder(*recordFile)
		defer func() {
			if err := rec.Close(); err != nil {
				logging.Error(err, "close recording")
			}
			logging.Info("recording saved", logging.Fields{"file": *recordFile, "frames": rec.Frames()})
		}()
		source.SetTap(rec)
	}

	var meter *chordtuner.MeterClient
	if cfg.Meter.Port != "" {
		meter = chordtuner.NewMeterClient(cfg.Meter.Port, cfg.Meter.BaudRate)
		if err := meter.Open(); err != nil {
			return err
		}
		defer meter.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p := &printer{meter: meter}
	detector := chordtuner.NewDetector(cfg, source)
	session, err := detector.Start(ctx, mode, profile, p.show)
	if err != nil {
		return err
	}

	if mode == chordtuner.ModeTuner {
		fmt.Printf("Tuning %s. Press Ctrl-C to stop.\n", profile.Name)
	} else {
		fmt.Println("Listening for chords. Press Ctrl-C to stop.")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-session.Done()
		return session.Err()
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-session.Done():
		}
		return detector.Stop(session)
	})
	err = g.Wait()
	if errors.Is(err, chordtuner.ErrEndOfInput) {
		err = nil
	}
	fmt.Println("\nStopped.")
	return err
}

// printer writes a line whenever the displayed result changes.
type printer struct {
	meter *chordtuner.MeterClient
	last  string
}

func (p *printer) show(r chordtuner.Result) {
	var line string
	if r.Mode == chordtuner.ModeTuner {
		parts := make([]string, 0, len(r.Readings))
		for _, reading := range r.Readings {
			parts = append(parts, reading.String())
		}
		line = strings.Join(parts, " | ")
		if line == "" {
			line = "-"
		}
	} else {
		line = r.Chord.String()
		if r.Chord.Detected() {
			line = fmt.Sprintf("%s (%d%%)", r.Chord.Label, r.Chord.Confidence)
		}
	}
	if line == p.last {
		return
	}
	p.last = line
	fmt.Println(line)

	if p.meter == nil {
		return
	}
	var err error
	if r.Mode == chordtuner.ModeTuner {
		err = p.meter.SendReadings(r.Readings)
	} else {
		err = p.meter.SendChord(r.Chord)
	}
	if err != nil {
		logging.Warn("meter update failed", logging.Fields{"error": err.Error()})
	}
}
