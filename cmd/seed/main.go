// Package main seeds a development database with offices, providers and open
// slots so the API can be exercised locally.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightsmile/reception/internal/config"
	"github.com/brightsmile/reception/internal/domain/office"
	"github.com/brightsmile/reception/internal/domain/schedule"
	"github.com/brightsmile/reception/internal/infrastructure/postgres"
	"github.com/brightsmile/reception/internal/pms"
)

const (
	officeCount        = 3
	providersPerOffice = 2
	slotMinutes        = 30
	seedDays           = 5
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	ctx := context.Background()
	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	defer pool.Close()

	sealer, err := office.NewSealer(cfg.CredentialKey)
	if err != nil {
		logger.Fatal("credential key invalid", zap.Error(err))
	}

	officeRepo := office.NewRepository(pool, logger)
	scheduleRepo := schedule.NewPgRepository(pool, logger)
	gofakeit.Seed(0)

	vendors := []pms.Vendor{pms.VendorCareStack, pms.VendorDentrix, pms.VendorEaglesoft}

	for i := 0; i < officeCount; i++ {
		sealed, err := sealer.Seal(pms.Credentials{
			ClientID:     gofakeit.UUID(),
			ClientSecret: gofakeit.Password(true, true, true, false, false, 32),
		})
		if err != nil {
			logger.Fatal("seal credentials failed", zap.Error(err))
		}

		o := &office.Office{
			ID:                uuid.New(),
			Name:              fmt.Sprintf("%s Dental", gofakeit.LastName()),
			PMSType:           vendors[i%len(vendors)],
			PMSBaseURL:        "https://sandbox.carestack.test/api/v1",
			PMSTokenURL:       "https://sandbox.carestack.test/oauth/token",
			SealedCredentials: sealed,
			Timezone:          "America/New_York",
			Hours:             office.DefaultHours(),
		}
		if err := officeRepo.Create(ctx, o); err != nil {
			logger.Fatal("create office failed", zap.Error(err))
		}
		logger.Info("office seeded",
			zap.String("office_id", o.ID.String()),
			zap.String("name", o.Name),
			zap.String("pms", string(o.PMSType)))

		locationID := uuid.New()
		if _, err := pool.Exec(ctx, `
			INSERT INTO locations (id, office_id, name, address)
			VALUES ($1, $2, $3, $4)
		`, locationID, o.ID, "Main Office", gofakeit.Address().Address); err != nil {
			logger.Fatal("seed location failed", zap.Error(err))
		}

		for p := 0; p < providersPerOffice; p++ {
			providerID := uuid.New()
			if _, err := pool.Exec(ctx, `
				INSERT INTO providers (id, office_id, name, specialty)
				VALUES ($1, $2, $3, $4)
			`, providerID, o.ID,
				fmt.Sprintf("Dr. %s %s", gofakeit.FirstName(), gofakeit.LastName()),
				gofakeit.RandomString([]string{"General Dentistry", "Orthodontics", "Endodontics"}),
			); err != nil {
				logger.Fatal("seed provider failed", zap.Error(err))
			}

			if err := seedSlots(ctx, scheduleRepo, o, providerID, locationID); err != nil {
				logger.Fatal("seed slots failed", zap.Error(err))
			}
		}
	}

	logger.Info("seed complete", zap.Int("offices", officeCount))
}

// seedSlots fills the next few weekdays with open slots across the office's
// business hours.
func seedSlots(ctx context.Context, repo *schedule.PgRepository, o *office.Office, providerID, locationID uuid.UUID) error {
	day := time.Now().AddDate(0, 0, 1)
	seeded := 0

	for seeded < seedDays {
		wd := day.Weekday()
		openMin, closeMin := o.Hours.Open[wd], o.Hours.Close[wd]
		if openMin >= closeMin {
			day = day.AddDate(0, 0, 1)
			continue
		}

		grid := schedule.Grid(day, openMin, closeMin, slotMinutes*time.Minute)
		slots := make([]*schedule.Slot, 0, len(grid))
		for _, iv := range grid {
			slots = append(slots, &schedule.Slot{
				ID:         uuid.New(),
				OfficeID:   o.ID,
				ProviderID: providerID,
				LocationID: &locationID,
				StartsAt:   iv.Start,
				EndsAt:     iv.End,
				Status:     schedule.SlotOpen,
			})
		}
		if err := repo.InsertSlots(ctx, slots); err != nil {
			return err
		}

		seeded++
		day = day.AddDate(0, 0, 1)
	}
	return nil
}
