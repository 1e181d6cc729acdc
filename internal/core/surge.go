package core

import (
	"context"
	"fmt"

	"shipyard/pkg/domain"
)

// TuneCost is the surge energy spent to tune one room.
const TuneCost = 1

// Tune spends surge energy to mark a placed room as tuned. Surge above the
// placed count is first trimmed to it.
func (s *Service) Tune(ctx context.Context, instanceID string) (int, Result, error) {
	var remaining int
	res, err := s.run(ctx, "tune", instanceID, func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			view := tx.Snapshot()
			if _, ok := view.FindPlaced(instanceID); !ok {
				return fmt.Errorf("%w: %s", domain.ErrNotPlaced, instanceID)
			}
			if view.IsTuned(instanceID) {
				return fmt.Errorf("%w: %s", domain.ErrAlreadyTuned, instanceID)
			}
			surge := min(view.Surge(), len(view.ListPlaced()))
			if surge < TuneCost {
				return domain.SurgeError{Have: surge, Need: TuneCost}
			}
			remaining = surge - TuneCost
			tx.SetSurge(remaining)
			return tx.SetTuned(instanceID, true)
		})
	})
	return remaining, res, err
}

// Untune clears a room's tuning. Spent surge is not refunded.
func (s *Service) Untune(ctx context.Context, instanceID string) (Result, error) {
	return s.run(ctx, "untune", instanceID, func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if !tx.Snapshot().IsTuned(instanceID) {
				return fmt.Errorf("%w: %s", domain.ErrNotTuned, instanceID)
			}
			return tx.SetTuned(instanceID, false)
		})
	})
}

// ResetSurge refills surge energy to the placed room count.
func (s *Service) ResetSurge(ctx context.Context) (int, Result, error) {
	var surge int
	res, err := s.run(ctx, "reset_surge", "", func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			surge = len(tx.Snapshot().ListPlaced())
			tx.SetSurge(surge)
			return nil
		})
	})
	return surge, res, err
}
