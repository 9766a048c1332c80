// internal/handlers/server.go
package handlers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inkguess/inkguess/internal/database"
	"github.com/inkguess/inkguess/internal/game"
	"github.com/inkguess/inkguess/internal/models"
	"github.com/inkguess/inkguess/internal/recognition"
)

// Server bundles the shared dependencies every handler needs: the room
// registry, the recognition bridge and the logger. Handlers are methods or
// constructors taking *Server so tests can assemble one with stubs.
type Server struct {
	Logger     *logrus.Logger
	Registry   *game.Registry
	Recognizer recognition.Recognizer
}

// NewServer wires a server around an empty registry.
func NewServer(logger *logrus.Logger, rec recognition.Recognizer) *Server {
	if logger == nil {
		logger = logrus.New()
	}
	return &Server{
		Logger:     logger,
		Registry:   game.NewRegistry(logger),
		Recognizer: rec,
	}
}

// saveGalleryEntry persists a recognized drawing off the request path.
// Failures are logged and dropped; the gallery is best-effort.
func (s *Server) saveGalleryEntry(room *game.Room, round int, drawer, target, bestGuess, image string) {
	if !database.Connected() {
		return
	}
	entry := &models.GalleryEntry{
		RoomID:     room.ID,
		Round:      round,
		Drawer:     drawer,
		TargetWord: target,
		BestGuess:  bestGuess,
		Image:      image,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := database.InsertGalleryEntry(ctx, entry); err != nil {
			s.Logger.WithError(err).Warn("failed to persist gallery entry")
		}
	}()
}
