// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/restaurant-roulette/server/internal/cache"
	"github.com/restaurant-roulette/server/internal/gateway"
	"github.com/restaurant-roulette/server/internal/handlers"
	"github.com/restaurant-roulette/server/internal/lobby"
	"github.com/restaurant-roulette/server/internal/middleware"
	"github.com/restaurant-roulette/server/internal/realtime"
	"github.com/restaurant-roulette/server/internal/search"
)

func main() {
	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// lobby registry
	store := lobby.NewStore(logger)
	store.StartSweeper(ctx, time.Minute)
	svc := lobby.NewService(store, logger)

	// realtime relay
	channel := realtime.NewChannel(logger)
	gw := gateway.New(svc, channel, logger)

	wrap := func(h http.Handler) http.Handler {
		return middleware.CORS(middleware.LogMiddleware(logger)(h))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handlers.Healthz)

	// lobby endpoints
	mux.Handle("/api/lobby/create", wrap(handlers.CreateLobbyHandler(svc)))
	mux.Handle("/api/lobby/join", wrap(handlers.JoinLobbyHandler(svc)))
	mux.Handle("/api/lobby/", wrap(handlers.LobbyInfoHandler(svc)))

	// search proxy, if a provider is configured
	if provider, err := search.NewSerpClient(); err != nil {
		logger.Warnf("search proxy disabled: %v", err)
	} else {
		var searchCache search.Cache
		if c, err := cache.Connect(logger); err != nil {
			logger.Warnf("redis unavailable, search caching disabled: %v", err)
		} else if c != nil {
			searchCache = c
		}
		searchSvc := search.NewService(provider, searchCache, logger)
		mux.Handle("/api/search", wrap(handlers.SearchHandler(searchSvc, logger)))
	}

	// realtime websocket
	mux.Handle("/ws", middleware.LogMiddleware(logger)(gw.Handler()))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}
