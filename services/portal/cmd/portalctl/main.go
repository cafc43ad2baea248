package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/diagnosis/institute-portal/pkg/config"
	"github.com/diagnosis/institute-portal/pkg/database"
	"github.com/diagnosis/institute-portal/pkg/events"
	"github.com/diagnosis/institute-portal/pkg/logger"
	"github.com/diagnosis/institute-portal/services/portal/internal/domain"
	"github.com/diagnosis/institute-portal/services/portal/internal/repository"
	"github.com/diagnosis/institute-portal/services/portal/internal/service"
)

func main() {
	cfg := config.Load()
	logger.Setup(cfg.Log.Level, "text")

	cmd := &cli.Command{
		Name:  "portalctl",
		Usage: "Administrative tasks for the institute portal",
		Commands: []*cli.Command{
			{
				Name:  "ensure-indexes",
				Usage: "Create the unique and TTL indexes",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withDB(ctx, cfg, func(db *mongo.Database) error {
						return repository.EnsureIndexes(ctx, db)
					})
				},
			},
			{
				Name:  "create-admin",
				Usage: "Create an admin account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true, Sources: cli.EnvVars("ADMIN_PASSWORD")},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withDB(ctx, cfg, func(db *mongo.Database) error {
						userRepo := repository.NewUserRepository(db, cfg.Mongo.QueryTimeout)
						authService := service.NewAuthService(userRepo, nil, service.NewPasswordHasher(cfg.Password), nil)

						user, err := authService.CreateAdmin(ctx, &domain.CreateAdminRequest{
							Name:     c.String("name"),
							Email:    c.String("email"),
							Password: c.String("password"),
						})
						if err != nil {
							return err
						}
						fmt.Printf("created admin %s (%s)\n", user.Email, user.ID.Hex())
						return nil
					})
				},
			},
			{
				Name:  "charge-fees",
				Usage: "Add a charge to a student's fee total",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "student", Required: true},
					&cli.FloatFlag{Name: "amount", Required: true},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withFees(ctx, cfg, func(fees service.FeesService) error {
						id, err := domain.ParseObjectID(c.String("student"))
						if err != nil {
							return err
						}
						ledger, err := fees.IncreaseTotal(ctx, id, c.Float("amount"))
						if err != nil {
							return err
						}
						return printJSON(ledger)
					})
				},
			},
			{
				Name:  "record-payment",
				Usage: "Record an offline payment against a student's ledger",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "student", Required: true},
					&cli.FloatFlag{Name: "amount", Required: true},
					&cli.StringFlag{Name: "method", Value: string(domain.MethodCash)},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withFees(ctx, cfg, func(fees service.FeesService) error {
						ledger, err := fees.ManualPayment(ctx, "cli", &domain.ManualPaymentRequest{
							StudentID: c.String("student"),
							Amount:    c.Float("amount"),
							Method:    c.String("method"),
						})
						if err != nil {
							return err
						}
						return printJSON(ledger)
					})
				},
			},
			{
				Name:  "ledger",
				Usage: "Print a student's fee ledger",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "student", Required: true},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withFees(ctx, cfg, func(fees service.FeesService) error {
						id, err := domain.ParseObjectID(c.String("student"))
						if err != nil {
							return err
						}
						ledger, err := fees.Ledger(ctx, id)
						if err != nil {
							return err
						}
						return printJSON(ledger)
					})
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logger.Error("portalctl failed", "error", err)
		os.Exit(1)
	}
}

func withDB(ctx context.Context, cfg *config.Config, fn func(db *mongo.Database) error) error {
	client, err := database.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.ConnectTimeout)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}()
	return fn(client.Database(cfg.Mongo.Database))
}

// withFees builds a fees service without a gateway; only ledger operations
// that never reach a payment provider are available.
func withFees(ctx context.Context, cfg *config.Config, fn func(service.FeesService) error) error {
	return withDB(ctx, cfg, func(db *mongo.Database) error {
		var bus events.Publisher = events.NopBus{}
		if cfg.NATS.URL != "" {
			nb, err := events.NewNATSEventBus(cfg.NATS.URL)
			if err != nil {
				return err
			}
			bus = nb
		}
		defer bus.Close()

		studentRepo := repository.NewStudentRepository(db, cfg.Mongo.QueryTimeout)
		return fn(service.NewFeesService(studentRepo, nil, bus, cfg))
	})
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
