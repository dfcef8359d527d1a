package games

import (
	"context"
	"time"

	"github.com/MarcoPoloResearchLab/cashgame/internal/ledger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DealerDownInput describes one dealer rotation. A nil TipsPaid means unpaid on
// create and leaves the stored flag alone on update.
type DealerDownInput struct {
	DealerName string
	Tips       decimal.Decimal
	Rake       decimal.Decimal
	TipsPaid   *bool
	Timestamp  time.Time
}

// ClaimTipsInput selects the unpaid downs of one dealer in one session.
// Percentage is the dealer's share and defaults to 100.
type ClaimTipsInput struct {
	SessionID  string
	DealerName string
	Percentage *decimal.Decimal
}

// ClaimTipsResult reports how a tips claim was split.
type ClaimTipsResult struct {
	UpdatedCount     int
	TotalTipsClaimed decimal.Decimal
	OwnerCut         decimal.Decimal
	DealerPayout     decimal.Decimal
}

func validateDealerDown(input DealerDownInput) (string, decimal.Decimal, decimal.Decimal, error) {
	name, err := requireName("dealerName", input.DealerName)
	if err != nil {
		return "", decimal.Zero, decimal.Zero, err
	}
	tips, err := requireNonNegativeAmount("tips", input.Tips)
	if err != nil {
		return "", decimal.Zero, decimal.Zero, err
	}
	rake, err := requireNonNegativeAmount("rake", input.Rake)
	if err != nil {
		return "", decimal.Zero, decimal.Zero, err
	}
	return name, tips, rake, nil
}

// CreateDealerDown records a dealer's tips and rake for a rotation.
func (s *Service) CreateDealerDown(ctx context.Context, actor Actor, sessionID string, input DealerDownInput) (DealerDown, error) {
	if err := s.guard(opCreateDealerDown, actor); err != nil {
		return DealerDown{}, err
	}
	name, tips, rake, err := validateDealerDown(input)
	if err != nil {
		return DealerDown{}, newServiceError(opCreateDealerDown, reasonInvalidInput, err)
	}
	access, err := s.loadAccess(ctx, s.db, opCreateDealerDown, actor, sessionID)
	if err != nil {
		return DealerDown{}, err
	}
	id, err := s.newID(opCreateDealerDown)
	if err != nil {
		return DealerDown{}, err
	}

	down := DealerDown{
		ID:                id,
		SessionID:         access.session.ID,
		DealerName:        name,
		Tips:              tips,
		Rake:              rake,
		TipsPaid:          input.TipsPaid != nil && *input.TipsPaid,
		Timestamp:         s.timestampOrNow(input.Timestamp),
		CreatedByID:       actor.UserID,
		CreatedByInitials: actor.Initials,
	}
	if err := s.db.WithContext(ctx).Create(&down).Error; err != nil {
		return DealerDown{}, s.writeFailed(opCreateDealerDown, err, zap.String("session_id", down.SessionID))
	}
	s.notify(down.SessionID, ChangeDealerDown, down.ID)
	return down, nil
}

// UpdateDealerDown replaces the dealer name and amounts of a down, and its tips-paid
// flag when one is given.
func (s *Service) UpdateDealerDown(ctx context.Context, actor Actor, downID string, input DealerDownInput) (DealerDown, error) {
	if err := s.guard(opUpdateDealerDown, actor); err != nil {
		return DealerDown{}, err
	}
	name, tips, rake, err := validateDealerDown(input)
	if err != nil {
		return DealerDown{}, newServiceError(opUpdateDealerDown, reasonInvalidInput, err)
	}

	var down DealerDown
	if err := s.loadOwnedRecord(ctx, s.db, opUpdateDealerDown, actor, downID, &down); err != nil {
		return DealerDown{}, err
	}
	down.DealerName = name
	down.Tips = tips
	down.Rake = rake
	if input.TipsPaid != nil {
		down.TipsPaid = *input.TipsPaid
	}
	if !input.Timestamp.IsZero() {
		down.Timestamp = input.Timestamp.UTC()
	}

	if err := s.db.WithContext(ctx).Save(&down).Error; err != nil {
		return DealerDown{}, s.writeFailed(opUpdateDealerDown, err, zap.String("dealer_down_id", down.ID))
	}
	s.notify(down.SessionID, ChangeDealerDown, down.ID)
	return down, nil
}

// DeleteDealerDown removes a down.
func (s *Service) DeleteDealerDown(ctx context.Context, actor Actor, downID string) error {
	if err := s.guard(opDeleteDealerDown, actor); err != nil {
		return err
	}
	var down DealerDown
	if err := s.loadOwnedRecord(ctx, s.db, opDeleteDealerDown, actor, downID, &down); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Where("id = ?", down.ID).Delete(&DealerDown{}).Error; err != nil {
		return s.writeFailed(opDeleteDealerDown, err, zap.String("dealer_down_id", down.ID))
	}
	s.notify(down.SessionID, ChangeDealerDown, down.ID)
	return nil
}

// ClaimRake marks a down's rake as taken out of the till.
func (s *Service) ClaimRake(ctx context.Context, actor Actor, downID string) (DealerDown, error) {
	if err := s.guard(opClaimRake, actor); err != nil {
		return DealerDown{}, err
	}
	var down DealerDown
	if err := s.loadOwnedRecord(ctx, s.db, opClaimRake, actor, downID, &down); err != nil {
		return DealerDown{}, err
	}
	if down.RakeClaimed {
		return down, nil
	}
	if err := s.db.WithContext(ctx).Model(&DealerDown{}).Where("id = ?", down.ID).Update("rake_claimed", true).Error; err != nil {
		return DealerDown{}, s.writeFailed(opClaimRake, err, zap.String("dealer_down_id", down.ID))
	}
	down.RakeClaimed = true
	s.notify(down.SessionID, ChangeDealerDown, down.ID)
	return down, nil
}

// ClaimTipsByDealer pays out every unpaid down of a dealer in one step. Names match
// case-insensitively. Downs already paid are left alone, so a repeated claim updates
// nothing and reports zero.
func (s *Service) ClaimTipsByDealer(ctx context.Context, actor Actor, input ClaimTipsInput) (ClaimTipsResult, error) {
	if err := s.guard(opClaimTipsByDealer, actor); err != nil {
		return ClaimTipsResult{}, err
	}
	dealerName, err := requireName("dealerName", input.DealerName)
	if err != nil {
		return ClaimTipsResult{}, newServiceError(opClaimTipsByDealer, reasonInvalidInput, err)
	}
	percentage, err := requirePercentage(input.Percentage)
	if err != nil {
		return ClaimTipsResult{}, newServiceError(opClaimTipsByDealer, reasonInvalidInput, err)
	}

	result := ClaimTipsResult{TotalTipsClaimed: decimal.Zero, OwnerCut: decimal.Zero, DealerPayout: decimal.Zero}
	var claimedIDs []string
	var sessionID string
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.loadOwnedSession(ctx, tx, opClaimTipsByDealer, actor, input.SessionID)
		if err != nil {
			return err
		}
		sessionID = session.ID

		// SQLite's LOWER only folds ASCII, so names are matched here rather than in SQL.
		var unpaid []DealerDown
		if err := tx.Where("session_id = ? AND tips_paid = ?", session.ID, false).
			Find(&unpaid).Error; err != nil {
			s.logError(opClaimTipsByDealer, reasonQueryFailed, err, zap.String("session_id", session.ID))
			return newServiceError(opClaimTipsByDealer, reasonQueryFailed, err)
		}

		dealerKey := ledger.NameKey(dealerName)
		total := decimal.Zero
		for _, down := range unpaid {
			if ledger.NameKey(down.DealerName) != dealerKey {
				continue
			}
			total = total.Add(down.Tips)
			claimedIDs = append(claimedIDs, down.ID)
		}
		if len(claimedIDs) == 0 {
			return nil
		}
		if err := tx.Model(&DealerDown{}).Where("id IN ?", claimedIDs).Update("tips_paid", true).Error; err != nil {
			return s.writeFailed(opClaimTipsByDealer, err, zap.String("session_id", session.ID))
		}

		payout := total.Mul(percentage).Div(hundred).Round(2)
		result = ClaimTipsResult{
			UpdatedCount:     len(claimedIDs),
			TotalTipsClaimed: total,
			DealerPayout:     payout,
			OwnerCut:         total.Sub(payout),
		}
		return nil
	})
	if txErr != nil {
		return ClaimTipsResult{}, txErr
	}

	if len(claimedIDs) > 0 {
		s.logger.Info("dealer tips claimed",
			zap.String("session_id", sessionID),
			zap.String("dealer_name", dealerName),
			zap.Int("downs", result.UpdatedCount),
			zap.String("dealer_payout", result.DealerPayout.StringFixed(2)),
		)
		s.notify(sessionID, ChangeDealerDown, claimedIDs...)
	}
	return result, nil
}
