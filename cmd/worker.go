package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"example.com/clinic/config"
	"example.com/clinic/internal/messaging"
	"example.com/clinic/internal/repository"
	"example.com/clinic/internal/service"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker that confirms appointments from the queue and reconciles stale task records`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	gormDB, err := initDatabase(cfg)
	if err != nil {
		return err
	}

	queue, err := messaging.NewClient(cfg.Azure)
	if err != nil {
		return err
	}
	defer queue.Close(context.Background())

	appointments := repository.NewAppointmentRepository(gormDB)
	tasks := repository.NewTaskRepository(gormDB)
	confirmations := service.NewConfirmationService(appointments, tasks, queue)

	// Queue consumer
	g.Go(func() error {
		log.Info().Str("queue", cfg.Azure.QueueName).Msg("starting confirmation queue processor")
		err := queue.ProcessMessages(ctx, confirmations.ProcessConfirmation)
		if err == context.Canceled {
			return nil
		}
		return err
	})

	// Reconciliation cron catches queued records whose message never arrived.
	g.Go(func() error {
		log.Info().
			Dur("interval", cfg.Worker.ReconcileInterval).
			Msg("starting stale task reconciliation job")

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Worker.ReconcileInterval),
			gocron.NewTask(func() {
				if err := confirmations.ReconcileStaleQueued(ctx, cfg.Worker.ReconcileMinAge, cfg.Worker.ReconcileBatch); err != nil {
					log.Error().Err(err).Msg("failed to reconcile stale tasks")
				}
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()

		<-ctx.Done()

		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("worker error")
		return err
	}

	log.Info().Msg("worker shutting down gracefully")
	return nil
}
