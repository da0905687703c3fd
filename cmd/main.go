package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Riboost-Studio/traceability-label-bridge/internal/model"
	"github.com/Riboost-Studio/traceability-label-bridge/internal/services"
	"github.com/Riboost-Studio/traceability-label-bridge/internal/utils"
)

const appVersion = "1.0.0"

// --- Main ---

func main() {
	doctor := flag.Bool("doctor", false, "check python and chrome availability and exit")
	flag.Parse()

	// 1. Load Configuration
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatal("Config error: ", err)
	}

	app := &model.AppContext{
		Name:       "Traceability Label Bridge",
		Version:    appVersion,
		Author:     "Riboost Studio",
		Config:     config,
		ScriptRoot: utils.ScriptRoot(config.Packaged, config.ResourcesPath, utils.ModuleDir()),
	}
	fmt.Printf("%s %s: packaged=%t, scripts=%s\n", app.Name, app.Version, config.Packaged, app.ScriptRoot)
	if info, err := os.Stat(app.ScriptRoot); err != nil || !info.IsDir() {
		log.Printf("[config] Warning: script directory %s not found, script calls will fail", app.ScriptRoot)
	}

	if *doctor {
		if err := utils.ValidateSystemRequirements(app.ScriptRoot); err != nil {
			os.Exit(1)
		}
		return
	}

	// 2. Wire the gateway
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	history, err := services.NewHistory(config.HistorySize)
	if err != nil {
		log.Fatal("History error: ", err)
	}
	invoker := services.NewInvoker(services.ExecRunner{MaxOutput: config.MaxOutputBytes})
	gateway := services.NewGateway(app, invoker, history)

	mux := http.NewServeMux()
	mux.Handle("/ws", services.NewWSServer(ctx, gateway))
	server := &http.Server{
		Addr:              config.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 3. Serve until interrupted
	go func() {
		log.Printf("[gateway] Listening on ws://%s/ws", config.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error: ", err)
		}
	}()

	<-ctx.Done()
	fmt.Println("\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[gateway] Shutdown error: %v", err)
	}
}
