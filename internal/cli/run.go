package cli

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/models"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/session"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/store"
)

// newRunCmd builds a scripted demo session: a handful of participants
// trading a random-walk market, with the leaderboard printed at the end.
// The core stays deterministic; randomness lives only in this driver.
func newRunCmd(app *App) *cobra.Command {
	var (
		participants int
		ticks        int
		seed         int64
		dbPath       string
		csvPath      string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scripted demo simulation session",
		RunE: func(cmd *cobra.Command, args []string) error {
			var sink session.Sink
			var db *store.SQLiteStore
			if dbPath != "" {
				var err error
				db, err = store.NewSQLiteStore(dbPath, app.Logger)
				if err != nil {
					return fmt.Errorf("opening store: %w", err)
				}
				defer db.Close()
				sink = db
			}

			sess, err := session.New(app.Config, app.Logger, sink)
			if err != nil {
				return err
			}
			defer sess.Close()

			ids := make([]string, participants)
			for i := range ids {
				ids[i] = fmt.Sprintf("trader-%02d", i+1)
				if err := sess.Join(ids[i]); err != nil {
					return err
				}
			}

			ctx := context.Background()
			rng := rand.New(rand.NewSource(seed))
			symbol := app.Config.Session.Symbol
			now := time.Now()
			expiry := now.AddDate(0, 2, 0)
			futures := 82.50

			// First tick so orders have a market to trade against.
			if err := publish(ctx, sess, symbol, futures, expiry, now); err != nil {
				return err
			}

			for i := 0; i < ticks; i++ {
				now = now.Add(30 * time.Second)
				futures *= math.Exp(0.002 * rng.NormFloat64())
				if err := publish(ctx, sess, symbol, futures, expiry, now); err != nil {
					return err
				}

				// Each tick a random participant trades.
				id := ids[rng.Intn(len(ids))]
				req := randomOrder(rng, id, symbol, futures, expiry)
				if _, err := sess.Submit(ctx, req); err != nil {
					return err
				}
			}

			printLeaderboard(cmd, sess.Leaderboard())

			if db != nil && csvPath != "" {
				f, err := os.Create(csvPath)
				if err != nil {
					return fmt.Errorf("creating csv: %w", err)
				}
				defer f.Close()
				for _, id := range ids {
					if err := db.ExportTradeHistory(ctx, id, f); err != nil {
						return err
					}
				}
				cmd.Printf("trade history written to %s\n", csvPath)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&participants, "participants", "p", 4, "number of participants")
	cmd.Flags().IntVarP(&ticks, "ticks", "n", 200, "number of market ticks")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed for the market driver")
	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite path for fill/breach/score persistence")
	cmd.Flags().StringVar(&csvPath, "csv", "", "write trade history csv after the run")

	return cmd
}

func publish(ctx context.Context, sess *session.Session, symbol string, futures float64, expiry, now time.Time) error {
	vols := map[string]float64{}
	for _, k := range []float64{75, 80, 82.5, 85, 90} {
		smile := 0.25 + 0.1*math.Abs(k/futures-1)
		vols[models.NewOption(symbol, k, expiry, models.OptionCall).Key()] = smile
		vols[models.NewOption(symbol, k, expiry, models.OptionPut).Key()] = smile
	}
	return sess.PublishTick(ctx, session.Tick{
		FuturesPrice: futures,
		RiskFreeRate: 0.05,
		ImpliedVols:  vols,
		Timestamp:    now,
	})
}

func randomOrder(rng *rand.Rand, participantID, symbol string, futures float64, expiry time.Time) session.OrderRequest {
	side := models.OrderSideBuy
	if rng.Intn(2) == 0 {
		side = models.OrderSideSell
	}

	var inst models.Instrument
	if rng.Intn(3) == 0 {
		inst = models.NewFuture(symbol)
	} else {
		strikes := []float64{75, 80, 82.5, 85, 90}
		typ := models.OptionCall
		if rng.Intn(2) == 0 {
			typ = models.OptionPut
		}
		inst = models.NewOption(symbol, strikes[rng.Intn(len(strikes))], expiry, typ)
	}

	return session.OrderRequest{
		ParticipantID: participantID,
		Side:          side,
		Style:         models.OrderStyleMarket,
		Instrument:    inst,
		Quantity:      1 + rng.Intn(5),
	}
}
