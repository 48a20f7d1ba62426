package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"acre.game/internal/config"
	"acre.game/internal/logging"
	"acre.game/internal/persistence/docstore/backend"
	persistlog "acre.game/internal/persistence/log"
	"acre.game/internal/protocol"
	"acre.game/internal/sim/catalogs"
	"acre.game/internal/transport/ws"
)

func main() {
	var (
		configPath = flag.String("config", "acre.toml", "path to the TOML config (defaults apply when absent)")
		addr       = flag.String("addr", "", "http listen address (overrides [server].listen_addr)")
		backendArg = flag.String("backend", "", "store backend: memory, sqlite or postgres (overrides [store].backend)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.ListenAddr = *addr
	}
	if *backendArg != "" {
		cfg.Store.Backend = *backendArg
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if cfg.Store.Backend == config.BackendRelay {
		log.Fatal("the relay cannot serve another relay; pick memory, sqlite or postgres")
	}

	ctx, cancel := signalContext()
	defer cancel()

	store, err := backend.Open(ctx, cfg.Store, ws.DialOptions{}, log)
	if err != nil {
		log.Fatal("open store", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	opts := ws.ServerOptions{Backend: cfg.Store.Backend}
	if cfg.Server.Validate {
		v, err := protocol.NewValidator()
		if err != nil {
			log.Fatal("load schemas", zap.Error(err))
		}
		opts.Validator = v
	}
	if dir := strings.TrimSpace(cfg.Server.JournalDir); dir != "" {
		j := persistlog.NewJournal(dir)
		defer func() { _ = j.Close() }()
		opts.Journal = j
		log.Info("journaling writes", zap.String("dir", dir))
	}
	relay := ws.NewServer(store, opts, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		fmt.Fprintf(rw, "# HELP acre_relay_clients Current number of connected clients.\n")
		fmt.Fprintf(rw, "# TYPE acre_relay_clients gauge\n")
		fmt.Fprintf(rw, "acre_relay_clients{backend=%q} %d\n", cfg.Store.Backend, relay.Live())

		fmt.Fprintf(rw, "# HELP acre_relay_info Static relay information.\n")
		fmt.Fprintf(rw, "# TYPE acre_relay_info gauge\n")
		fmt.Fprintf(rw, "acre_relay_info{backend=%q,catalog=%q,protocol=%q} 1\n", cfg.Store.Backend, catalogs.Digest()[:12], protocol.Version)
	})
	if envBool("ACRE_ENABLE_PPROF_HTTP") {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/store", relay.Handler())

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	log.Info("relay listening",
		zap.String("addr", cfg.Server.ListenAddr),
		zap.String("backend", cfg.Store.Backend),
		zap.Bool("validate", opts.Validator != nil),
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("ListenAndServe", zap.Error(err))
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
