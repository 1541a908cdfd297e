package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"scramble-server/api"
	"scramble-server/boardauth"
	"scramble-server/boardfile"
	"scramble-server/boardlog"
	"scramble-server/boardregistry"
	"scramble-server/config"
	"scramble-server/journal"
	"scramble-server/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		if err2 := godotenv.Load("server/.env"); err2 != nil {
			log.Print("No .env file found; using environment variables. For local dev, run from server/ or set JWKS_URL and BIND_ADDR.")
		}
	}

	cfg := config.Load()
	slog.SetDefault(slog.New(boardlog.NewCompactHandler(os.Stdout, boardlog.ParseLevel(cfg.LogLevel))))

	parsed, err := boardfile.Load(cfg.BoardFile)
	if err != nil {
		log.Fatalf("failed to load board file %q: %v", cfg.BoardFile, err)
	}

	reg := boardregistry.New()
	if _, _, err := reg.Create("default", parsed.Rows, parsed.Cols, parsed.Contents); err != nil {
		log.Fatalf("failed to host initial board: %v", err)
	}
	slog.Info("hosted initial board", "tag", "main", "id", "default", "rows", parsed.Rows, "cols", parsed.Cols)

	var auther *boardauth.Resolver
	if cfg.JWKSURL == "" {
		slog.Warn("JWKS_URL is not set; actor identity will be taken directly from requests (development mode)", "tag", "main")
	} else {
		auther, err = boardauth.NewResolver(cfg.JWKSURL)
		if err != nil {
			log.Fatalf("failed to build JWKS resolver: %v", err)
		}
		slog.Info("auth configured", "tag", "main", "jwks_url", cfg.JWKSURL)
	}

	ctx := context.Background()
	jrnl, err := journal.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Warn("journal unavailable; continuing without persistence", "tag", "main", "err", err)
	}
	if jrnl != nil {
		defer jrnl.Close()
		slog.Info("journal persistence enabled", "tag", "main")
	}

	hub := ws.NewHub(cfg, reg, auther, jrnl)
	go hub.Run(ctx)

	handler := api.NewHandler(cfg, reg, auther, jrnl)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.HandleFunc("/api/boards", handler.ListBoards)
	mux.HandleFunc("/api/boards/", boardSubrouter(handler))

	slog.Info("scramble server listening", "tag", "main", "addr", cfg.BindAddr)
	log.Fatal(http.ListenAndServe(cfg.BindAddr, mux))
}

// boardSubrouter dispatches /api/boards/{id}/{action} to the matching
// Handler method. Kept as a small manual router rather than pulling in a
// routing library, matching the flat stdlib-mux style the rest of the
// adapters use.
func boardSubrouter(h *api.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/boards/")
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) != 2 || parts[0] == "" {
			http.NotFound(w, r)
			return
		}
		boardID, action := parts[0], parts[1]

		switch action {
		case "view":
			h.View(w, r, boardID)
		case "flip":
			h.Flip(w, r, boardID)
		case "transform":
			h.Transform(w, r, boardID)
		case "events":
			h.Events(w, r, boardID)
		default:
			http.NotFound(w, r)
		}
	}
}
