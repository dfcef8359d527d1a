package games

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// TillCountInput is one physical count and the analysis it produced, already encoded
// as JSON.
type TillCountInput struct {
	ActualTill   decimal.Decimal
	ExpectedTill decimal.Decimal
	Discrepancy  decimal.Decimal
	Analysis     json.RawMessage
}

// RecordTillCount stores a till count for later review.
func (s *Service) RecordTillCount(ctx context.Context, actor Actor, sessionID string, input TillCountInput) (TillCount, error) {
	if err := s.guard(opRecordTillCount, actor); err != nil {
		return TillCount{}, err
	}
	if input.ActualTill.IsNegative() {
		return TillCount{}, newServiceError(opRecordTillCount, reasonInvalidInput, validationError("actualTill must not be negative"))
	}
	if len(input.Analysis) > 0 && !json.Valid(input.Analysis) {
		return TillCount{}, newServiceError(opRecordTillCount, reasonInvalidInput, validationError("analysis must be valid JSON"))
	}
	access, err := s.loadAccess(ctx, s.db, opRecordTillCount, actor, sessionID)
	if err != nil {
		return TillCount{}, err
	}
	id, err := s.newID(opRecordTillCount)
	if err != nil {
		return TillCount{}, err
	}

	count := TillCount{
		ID:                id,
		SessionID:         access.session.ID,
		ActualTill:        input.ActualTill.Round(2),
		ExpectedTill:      input.ExpectedTill.Round(2),
		Discrepancy:       input.Discrepancy.Round(2),
		CreatedByID:       actor.UserID,
		CreatedByInitials: actor.Initials,
		CreatedAt:         s.now(),
	}
	if len(input.Analysis) > 0 {
		count.Analysis = datatypes.JSON(input.Analysis)
	}
	if err := s.db.WithContext(ctx).Create(&count).Error; err != nil {
		return TillCount{}, s.writeFailed(opRecordTillCount, err, zap.String("session_id", count.SessionID))
	}
	s.notify(count.SessionID, ChangeTillCount, count.ID)
	return count, nil
}

// ListTillCounts returns a session's till counts, newest first.
func (s *Service) ListTillCounts(ctx context.Context, actor Actor, sessionID string) ([]TillCount, error) {
	if err := s.guard(opListTillCounts, actor); err != nil {
		return nil, err
	}
	access, err := s.loadAccess(ctx, s.db, opListTillCounts, actor, sessionID)
	if err != nil {
		return nil, err
	}
	var counts []TillCount
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", access.session.ID).
		Order("created_at DESC, id DESC").
		Find(&counts).Error; err != nil {
		s.logError(opListTillCounts, reasonQueryFailed, err, zap.String("session_id", access.session.ID))
		return nil, newServiceError(opListTillCounts, reasonQueryFailed, err)
	}
	return counts, nil
}
