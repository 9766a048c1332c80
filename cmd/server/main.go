// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/inkguess/inkguess/internal/auth"
	"github.com/inkguess/inkguess/internal/cache"
	"github.com/inkguess/inkguess/internal/database"
	"github.com/inkguess/inkguess/internal/game"
	"github.com/inkguess/inkguess/internal/handlers"
	"github.com/inkguess/inkguess/internal/middleware"
	"github.com/inkguess/inkguess/internal/recognition"
)

func main() {
	auth.Init()

	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	// The database and Redis are optional: without them accounts, the gallery
	// and the turn archive degrade to no-ops while rooms keep working.
	if err := database.ConnectDB(); err != nil {
		logger.WithError(err).Warn("running without a database")
		database.DB = nil
	} else if err := database.EnsureSchema(context.Background()); err != nil {
		logger.WithError(err).Fatal("failed to apply database schema")
	}
	if err := cache.ConnectRedis(); err != nil {
		logger.WithError(err).Warn("running without a turn archive")
		cache.Rdb = nil
	}

	recognizer := recognition.NewClientFromEnv(logger)
	srv := handlers.NewServer(logger, recognizer)
	if cache.Rdb != nil {
		srv.Registry.Recorder = func(rec game.TurnRecord) {
			if err := cache.PublishTurnRecord(context.Background(), rec); err != nil {
				logger.WithError(err).Warn("failed to archive turn record")
			}
		}
	}

	logged := middleware.LogMiddleware(logger)
	mux := http.NewServeMux()

	// session and account endpoints
	mux.Handle("/session", logged(http.HandlerFunc(srv.SessionHandler)))
	mux.Handle("/user/register", logged(http.HandlerFunc(srv.RegisterHandler)))
	mux.Handle("/user/login", logged(http.HandlerFunc(srv.LoginHandler)))

	// room lifecycle
	mux.Handle("/room/create", logged(http.HandlerFunc(srv.CreateRoomHandler)))
	mux.Handle("/room/join", logged(http.HandlerFunc(srv.JoinRoomHandler)))
	mux.Handle("/room/leave", logged(http.HandlerFunc(srv.LeaveRoomHandler)))
	mux.Handle("/room/delete", logged(http.HandlerFunc(srv.DeleteRoomHandler)))
	mux.Handle("/room/list", logged(http.HandlerFunc(srv.ListRoomsHandler)))
	mux.Handle("/room/state", logged(http.HandlerFunc(srv.StateHandler)))

	// round orchestration
	mux.Handle("/room/ready", logged(http.HandlerFunc(srv.ReadyHandler)))
	mux.Handle("/room/configure", logged(http.HandlerFunc(srv.ConfigureHandler)))
	mux.Handle("/room/select_drawer", logged(http.HandlerFunc(srv.SelectDrawerHandler)))
	mux.Handle("/room/model_config", logged(http.HandlerFunc(srv.ModelConfigHandler)))
	mux.Handle("/room/start", logged(http.HandlerFunc(srv.StartRoundHandler)))
	mux.Handle("/room/reset", logged(http.HandlerFunc(srv.ResetHandler)))

	// drawing and guessing
	mux.Handle("/room/guess", logged(http.HandlerFunc(srv.GuessHandler)))
	mux.Handle("/room/skip", logged(http.HandlerFunc(srv.SkipHandler)))
	mux.Handle("/room/ai_guess", logged(http.HandlerFunc(srv.AIAssistHandler)))
	mux.Handle("/room/submit", logged(http.HandlerFunc(srv.SubmitHandler)))
	mux.Handle("/room/sync_drawing", logged(http.HandlerFunc(srv.SyncDrawingHandler)))

	// gallery
	mux.Handle("/gallery", logged(http.HandlerFunc(srv.GalleryHandler)))

	// live room state feed
	mux.Handle("/room/ws/", logged(srv.RoomWSHandler()))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
