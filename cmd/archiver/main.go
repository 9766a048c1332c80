// cmd/archiver/main.go is an asynchronous archival service that pops turn
// records from the Redis queue and persists them to PostgreSQL in batches.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/inkguess/inkguess/internal/cache"
	"github.com/inkguess/inkguess/internal/database"
	"github.com/inkguess/inkguess/internal/game"
)

// ArchiverService drains the turn queue into the turn_records table. Records
// are grouped into transactions so a busy party night does not turn into one
// insert per guess.
type ArchiverService struct {
	redisClient *redis.Client
	logger      *logrus.Logger
	batchSize   int
	flushDelay  time.Duration

	batchMu  sync.Mutex
	batch    []game.TurnRecord
	ctx      context.Context
	cancelFn context.CancelFunc
}

// NewArchiverService constructs the service from environment variables or defaults.
func NewArchiverService(logger *logrus.Logger) *ArchiverService {
	batchSize := getEnvInt("ARCHIVER_BATCH_SIZE", 20)
	flushMs := getEnvInt("ARCHIVER_FLUSH_MS", 500)

	rdb := redis.NewClient(&redis.Options{
		Addr: getEnv("REDIS_ADDR", "localhost:6379"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	return &ArchiverService{
		redisClient: rdb,
		logger:      logger,
		batchSize:   batchSize,
		flushDelay:  time.Duration(flushMs) * time.Millisecond,
		batch:       make([]game.TurnRecord, 0, batchSize),
		ctx:         ctx,
		cancelFn:    cancel,
	}
}

// Run blocks on the queue-draining loop until Stop is called.
func (as *ArchiverService) Run() {
	if err := database.ConnectDB(); err != nil {
		as.logger.WithError(err).Fatal("archiver requires a database")
	}

	go as.readQueueLoop()

	as.logger.Info("turn archiver started")
	<-as.ctx.Done()
	as.flushBatchToDB()
	as.logger.Info("turn archiver shutting down")
}

// readQueueLoop uses BLPop to retrieve records, accumulating them into the
// batch and flushing on size or delay.
func (as *ArchiverService) readQueueLoop() {
	ticker := time.NewTicker(as.flushDelay)
	defer ticker.Stop()

	queueName := getEnv("TURN_QUEUE_NAME", cache.DefaultQueueName)

	for {
		select {
		case <-as.ctx.Done():
			return

		case <-ticker.C:
			as.flushBatchToDB()

		default:
			// BLPop with a short timeout keeps shutdown responsive.
			res, err := as.redisClient.BLPop(as.ctx, 3*time.Second, queueName).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				if as.ctx.Err() != nil {
					return
				}
				as.logger.WithError(err).Error("BLPop failed")
				continue
			}
			if len(res) < 2 {
				continue
			}

			var record game.TurnRecord
			if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
				as.logger.WithError(err).Warn("invalid turn record on queue")
				continue
			}
			as.appendToBatch(record)
		}
	}
}

func (as *ArchiverService) appendToBatch(record game.TurnRecord) {
	as.batchMu.Lock()
	defer as.batchMu.Unlock()

	as.batch = append(as.batch, record)
	if len(as.batch) >= as.batchSize {
		as.flushLocked()
	}
}

func (as *ArchiverService) flushBatchToDB() {
	as.batchMu.Lock()
	defer as.batchMu.Unlock()
	as.flushLocked()
}

// flushLocked writes the pending batch in one transaction. Caller holds batchMu.
func (as *ArchiverService) flushLocked() {
	if len(as.batch) == 0 {
		return
	}
	batchCopy := make([]game.TurnRecord, len(as.batch))
	copy(batchCopy, as.batch)
	as.batch = as.batch[:0]

	ctx := context.Background()
	err := pgx.BeginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range batchCopy {
			if err := insertTurnRecordTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertTurnRecordTx: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		as.logger.WithError(err).Error("failed to flush turn records")
		return
	}
	as.logger.WithField("count", len(batchCopy)).Debug("flushed turn records")
}

func insertTurnRecordTx(ctx context.Context, tx pgx.Tx, rec game.TurnRecord) error {
	q := `
		INSERT INTO turn_records (
			room_id, round, event, player, drawer, target, guess, correct, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, to_timestamp($9))
	`
	_, err := tx.Exec(ctx, q,
		rec.RoomID, rec.Round, rec.Event, rec.Player, rec.Drawer,
		rec.Target, rec.Guess, rec.Correct, rec.Timestamp,
	)
	return err
}

// Stop gracefully stops the service.
func (as *ArchiverService) Stop() {
	as.cancelFn()
}

func main() {
	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	}

	as := NewArchiverService(logger)
	go as.Run()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	as.Stop()
	logger.Info("archiver shutdown complete")
}

func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}
