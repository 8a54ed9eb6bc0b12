package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticketbooking/booking"
	"ticketbooking/cache"
	"ticketbooking/config"
	"ticketbooking/http"
	"ticketbooking/message"
	"ticketbooking/postgres"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Service struct {
	httpAddr   string
	httpRouter *echo.Echo

	// Both are nil when events are disabled.
	msgRouter *message.Router
	forwarder *message.Forwarder
}

func New(
	cfg config.Config,
	logger watermill.LoggerAdapter,
	rdb *redis.Client,
	db *sqlx.DB,
) (*Service, error) {
	s := &Service{
		httpAddr: cfg.HTTPAddr,
	}

	historyRepo := postgres.NewHistoryRepo(db)

	var outbox postgres.Outbox
	if cfg.EventsEnabled {
		fwd, err := message.NewForwarder(db, rdb, logger)
		if err != nil {
			return nil, fmt.Errorf("creating forwarder: %w", err)
		}
		s.forwarder = fwd

		msgRouter, err := message.NewRouter(message.RouterDeps{
			Logger:      logger,
			RedisClient: rdb,
			History:     historyRepo,
		})
		if err != nil {
			return nil, fmt.Errorf("creating message router: %w", err)
		}
		s.msgRouter = msgRouter

		outbox = message.NewOutbox(logger)
	}

	ticketRepo := postgres.NewTicketRepo(db, outbox)
	requestCache := cache.NewRequestCache(rdb, cfg.RequestTTL)
	bookings := booking.NewService(ticketRepo, requestCache, historyRepo, cfg.BookingTimeout)

	s.httpRouter = http.NewRouter(bookings)

	return s, nil
}

func (s Service) Run(ctx context.Context) error {
	g, runCtx := errgroup.WithContext(ctx)

	if s.msgRouter != nil {
		g.Go(func() error {
			if err := s.msgRouter.Run(runCtx); err != nil {
				return fmt.Errorf("running messaging router: %w", err)
			}

			return nil
		})

		g.Go(func() error {
			if err := s.forwarder.Run(runCtx); err != nil {
				return fmt.Errorf("running outbox forwarder: %w", err)
			}

			return nil
		})
	}

	g.Go(func() error {
		if s.msgRouter != nil {
			// Wait for message router
			select {
			case <-s.msgRouter.Running():
			case <-runCtx.Done():
				return nil
			}
		}

		logrus.WithField("addr", s.httpAddr).Info("Starting HTTP server...")
		err := s.httpRouter.Start(s.httpAddr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("starting http server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-runCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		logrus.Info("Shutting down HTTP server...")
		if err := s.httpRouter.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("waiting for shutdown: %w", err)
	}
	logrus.Info("Shutdown complete.")

	return nil
}
