package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airenas/async-api/pkg/miniofs"
	"github.com/airenas/go-app/pkg/goapp"
	capi "github.com/hashicorp/consul/api"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
	"github.com/vetscribe/scribe/internal/pkg/audio"
	"github.com/vetscribe/scribe/internal/pkg/consul"
	"github.com/vetscribe/scribe/internal/pkg/notes"
	"github.com/vetscribe/scribe/internal/pkg/postgres"
	"github.com/vetscribe/scribe/internal/pkg/transcriber"
	tapi "github.com/vetscribe/scribe/internal/pkg/transcriber/api"
	"github.com/vetscribe/scribe/internal/pkg/worker"
	"github.com/vgarvardt/gue/v5"
	"github.com/vgarvardt/gue/v5/adapter/pgxv5"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	data := &worker.ServiceData{}
	ctx := context.Background()

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}

	goapp.Log.Info().Int32("max_conn", dbConfig.MaxConns).Int32("min_conn", dbConfig.MinConns).Msg("db info")

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	data.GueClient, err = gue.NewClient(pgxv5.NewConnPool(dbPool))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue")
	}
	data.WorkerCount = defaultV(cfg.GetInt("worker.count"), 2)
	data.WorkDir = defaultV(cfg.GetString("worker.dir"), os.TempDir())
	data.MsgSender, err = postgres.NewSender(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue sender")
	}
	data.Filer, err = miniofs.NewFiler(ctx, miniofs.Options{Bucket: cfg.GetString("filer.bucket"),
		URL: cfg.GetString("filer.url"), User: cfg.GetString("filer.user"), Key: cfg.GetString("filer.key")})
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init filer")
	}
	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}

	data.DB = db

	data.Normalizer, err = audio.NewNormalizer(audio.NewCmdRunner(),
		defaultV(cfg.GetDuration("audio.timeout"), time.Minute*10))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init normalizer")
	}
	data.NoteGen, err = notes.NewClient(cfg.GetString("notes.url"), cfg.GetString("notes.model"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init note generator")
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	data.TranscriberPr, err = initTranscriberProvider(ctx, cfg.GetString("consul.url"),
		cfg.GetString("consul.service"), cfg.GetString("transcriber.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init transcriber provider")
	}

	printBanner()

	doneCh, err := worker.StartWorkerService(ctx, data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start worker service")
	}
	/////////////////////// Waiting for terminate
	waitCh := make(chan os.Signal, 2)
	signal.Notify(waitCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-waitCh:
		goapp.Log.Info().Msg("Got exit signal")
	case <-doneCh:
		goapp.Log.Info().Msg("Service exit")
	}
	cancelFunc()
	select {
	case <-doneCh:
		goapp.Log.Info().Msg("All code returned. Now exit. Bye")
	case <-time.After(time.Second * 15):
		goapp.Log.Warn().Msg("Timeout gracefull shutdown")
	}
}

func initTranscriberProvider(ctx context.Context, consulURL, consulSrv, sttURL string) (tapi.Provider, error) {
	if consulURL != "" {
		ccfg := capi.DefaultConfig()
		ccfg.Address = consulURL
		pr, err := consul.NewProvider(ccfg, defaultV(consulSrv, "stt"))
		if err != nil {
			return nil, err
		}
		if _, err := pr.StartRegistryLoop(ctx, time.Second*30); err != nil {
			return nil, err
		}
		return pr, nil
	}
	tr, err := transcriber.NewClient(sttURL)
	if err != nil {
		return nil, err
	}
	return transcriber.NewStaticProvider(tr, sttURL)
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
/____/\____/_/ |_/___/_____/_____/   v: %s

                      __
 _      ______  _____/ /_____  _____
| | /| / / __ \/ ___/ //_/ _ \/ ___/
| |/ |/ / /_/ / /  / ,< /  __/ /
|__/|__/\____/_/  /_/|_|\___/_/

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/vetscribe/scribe"))
}
