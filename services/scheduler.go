// services/scheduler.go
package services

import (
	"context"
	"log"
	"sort"
	"time"

	"session-stats-service/models"
	"session-stats-service/processors"

	"github.com/go-co-op/gocron/v2"
)

// StartWinnerRecomputeScheduler repairs the derived winner rows. Winner
// entries are a read-cache over PlayerStat data; any write path that commits
// stats without winner rows flags the session stale, and this job rebuilds
// the cache.
func (s *SessionService) StartWinnerRecomputeScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every 5 minutes: recompute winners for stale sessions
	_, _ = sched.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			s.RecomputeStaleWinners(ctx)
		}),
	)
}

// RecomputeStaleWinners runs one recompute sweep over all stale sessions.
func (s *SessionService) RecomputeStaleWinners(ctx context.Context) {
	sessions, err := s.Store.FindStaleSessions(ctx)
	if err != nil {
		log.Printf("[Scheduler] DB error: %v", err)
		return
	}

	for i := range sessions {
		if err := s.recomputeSessionWinners(ctx, &sessions[i]); err != nil {
			log.Printf("[Scheduler] Failed to recompute winners for session %d: %v", sessions[i].ID, err)
		} else {
			log.Printf("✅ Recomputed winners for session: %s", sessions[i].SessionName)
		}
	}
}

// recomputeSessionWinners rebuilds match and set winner rows for one session
// from its stat data, inside one transaction, then clears the stale flag.
func (s *SessionService) recomputeSessionWinners(ctx context.Context, sess *models.Session) error {
	proc, err := processors.ForGame(sess.GameID)
	if err != nil {
		return err
	}

	players, err := s.Store.FindAllPlayers(ctx)
	if err != nil {
		return err
	}
	playerNames := make(map[int]string, len(players))
	for _, p := range players {
		playerNames[p.ID] = p.PlayerName
	}

	return s.Store.InTransaction(ctx, func(tx SessionTx) error {
		for _, set := range sess.Sets {
			matchWins := map[int]int{}

			for _, match := range set.Matches {
				processed := make([]processors.ProcessedPlayer, 0, len(match.PlayerSessions))
				for _, ps := range match.PlayerSessions {
					pp := processors.ProcessedPlayer{
						PlayerID: ps.PlayerID,
						Name:     playerNames[ps.PlayerID],
					}
					for _, stat := range ps.PlayerStats {
						pp.Stats = append(pp.Stats, processors.StatLine{
							StatName:  stat.StatName,
							StatValue: stat.Value,
						})
					}
					processed = append(processed, pp)
				}

				winners := proc.CalculateWinners(processed)
				rows := make([]models.MatchWinner, 0, len(winners))
				for _, w := range winners {
					matchWins[w.PlayerID]++
					rows = append(rows, models.MatchWinner{
						MatchID: match.ID, PlayerID: w.PlayerID, PlayerName: w.PlayerName,
					})
				}
				if err := tx.ReplaceMatchWinners(match.ID, rows); err != nil {
					return err
				}
			}

			// set winners: whoever took the most matches in the set
			best := 0
			for _, n := range matchWins {
				if n > best {
					best = n
				}
			}
			var setRows []models.SetWinner
			if best > 0 {
				for playerID, n := range matchWins {
					if n == best {
						setRows = append(setRows, models.SetWinner{
							SetID: set.ID, PlayerID: playerID, PlayerName: playerNames[playerID],
						})
					}
				}
				sort.Slice(setRows, func(i, j int) bool { return setRows[i].PlayerID < setRows[j].PlayerID })
			}
			if err := tx.ReplaceSetWinners(set.ID, setRows); err != nil {
				return err
			}
		}

		return tx.ClearWinnersStale(sess.ID)
	})
}
