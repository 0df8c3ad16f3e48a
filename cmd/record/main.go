package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/labstack/gommon/color"
	"github.com/vetscribe/scribe/internal/pkg/recorder"
	"github.com/vetscribe/scribe/internal/pkg/uploader"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	printBanner()

	patient := recorder.Patient{ID: cfg.GetString("patient.id"),
		ClientName: cfg.GetString("patient.clientName")}
	ownerID := cfg.GetString("ownerID")
	if ownerID == "" {
		goapp.Log.Fatal().Msg("no ownerID")
	}

	device, err := recorder.NewFFmpegDevice(
		defaultV(cfg.GetString("capture.format"), "alsa"),
		defaultV(cfg.GetString("capture.input"), "default"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init capture device")
	}
	machine, err := recorder.NewMachine(device, time.Second)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init recorder")
	}
	upl, err := uploader.NewClient(cfg.GetString("gateway.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init uploader")
	}

	ctx := context.Background()
	if err := run(ctx, machine, upl, patient, ownerID,
		cfg.GetString("email"), cfg.GetBool("consent"), os.Stdin); err != nil {
		goapp.Log.Fatal().Err(err).Send()
	}
}

// run drives the recorder from simple line commands until the take is stopped
func run(ctx context.Context, m *recorder.Machine, upl *uploader.Client,
	patient recorder.Patient, ownerID, email string, consent bool, in *os.File) error {
	if err := m.Start(ctx, patient, consent); err != nil {
		return fmt.Errorf("can't start recording: %w", err)
	}
	fmt.Println("Recording. Commands: p - pause, r - resume, s - stop and upload")

	sc := bufio.NewScanner(in)
	for m.State() != recorder.Idle {
		fmt.Printf("[%s %3ds] > ", m.State(), m.DurationSec())
		if !sc.Scan() {
			break
		}
		switch strings.TrimSpace(sc.Text()) {
		case "p":
			if err := m.Pause(); err != nil {
				goapp.Log.Error().Err(err).Send()
			}
		case "r":
			if err := m.Resume(); err != nil {
				goapp.Log.Error().Err(err).Send()
			}
		case "s":
			return stopAndUpload(ctx, m, upl, ownerID, email)
		case "":
		default:
			fmt.Println("p - pause, r - resume, s - stop and upload")
		}
	}
	return stopAndUpload(ctx, m, upl, ownerID, email)
}

func stopAndUpload(ctx context.Context, m *recorder.Machine, upl *uploader.Client,
	ownerID, email string) error {
	rec, err := m.Stop(ctx)
	if err != nil {
		return fmt.Errorf("can't stop recording: %w", err)
	}
	res, err := upl.Upload(ctx, rec, ownerID, email)
	if err != nil {
		return fmt.Errorf("can't upload recording: %w", err)
	}
	fmt.Printf("Uploaded. Consultation %s (%s)\n", res.ID, res.Status)
	return nil
}

func defaultV[T comparable](v, d T) T {
	var empty T
	if v == empty {
		return d
	}
	return v
}

var (
	version = "DEV"
)

func printBanner() {
	banner := `
   _____ __________  ________  ______
  / ___// ____/ __ \/  _/ __ )/ ____/
  \__ \/ /   / /_/ // // __  / __/
 ___/ / /___/ _, _// // /_/ / /___
/____/\____/_/ |_/___/_____/_____/

                                   __
   ________  _________  _________/ /
  / ___/ _ \/ ___/ __ \/ ___/ __  /
 / /  /  __/ /__/ /_/ / /  / /_/ /
/_/   \___/\___/\____/_/   \__,_/   v: %s

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/vetscribe/scribe"))
}
