package games

import (
	"context"
	"errors"
	"strings"

	"github.com/MarcoPoloResearchLab/cashgame/internal/ledger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SessionInput describes a new session.
type SessionInput struct {
	Name      string
	TableName string
	Currency  string
	Language  string
}

// SessionSummary is the aggregate view returned to clients.
type SessionSummary struct {
	Session GameSession
	Summary ledger.Summary
	Players []ledger.PlayerStanding
	Dealers []ledger.DealerStanding
}

// StartSession creates an active session for the actor and ends any session the actor
// still had running.
func (s *Service) StartSession(ctx context.Context, actor Actor, input SessionInput) (GameSession, error) {
	if err := s.guard(opStartSession, actor); err != nil {
		return GameSession{}, err
	}
	name, err := requireName("name", input.Name)
	if err != nil {
		return GameSession{}, newServiceError(opStartSession, reasonInvalidInput, err)
	}
	currency, err := normalizeCurrency(input.Currency)
	if err != nil {
		return GameSession{}, newServiceError(opStartSession, reasonInvalidInput, err)
	}
	id, err := s.newID(opStartSession)
	if err != nil {
		return GameSession{}, err
	}

	now := s.now()
	session := GameSession{
		ID:         id,
		Name:       name,
		TableLabel: strings.TrimSpace(input.TableName),
		StartedAt:  now,
		IsActive:   true,
		Currency:   currency,
		Language:   normalizeLanguage(input.Language),
		TotalRake:  decimal.Zero,
		OwnerID:    actor.UserID,
	}

	var endedIDs []string
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var previous []GameSession
		if err := tx.Where("owner_id = ? AND is_active = ?", actor.UserID, true).Find(&previous).Error; err != nil {
			s.logError(opStartSession, reasonQueryFailed, err, zap.String("owner_id", actor.UserID))
			return newServiceError(opStartSession, reasonQueryFailed, err)
		}
		for _, prior := range previous {
			ended, err := s.finishSession(tx, prior.ID)
			if err != nil {
				return s.writeFailed(opStartSession, err, zap.String("session_id", prior.ID))
			}
			if ended {
				endedIDs = append(endedIDs, prior.ID)
			}
		}
		if err := tx.Create(&session).Error; err != nil {
			return s.writeFailed(opStartSession, err, zap.String("session_id", session.ID))
		}
		return nil
	})
	if txErr != nil {
		return GameSession{}, txErr
	}

	for _, endedID := range endedIDs {
		s.logger.Info("previous session force-ended", zap.String("session_id", endedID), zap.String("owner_id", actor.UserID))
		s.countCompletedGame(ctx, opStartSession, actor.UserID)
		s.notify(endedID, ChangeSession, endedID)
	}
	s.notify(session.ID, ChangeSession, session.ID)
	return session, nil
}

// EndSession closes an active session. Ending an already ended session is a no-op.
func (s *Service) EndSession(ctx context.Context, actor Actor, sessionID string) (GameSession, error) {
	if err := s.guard(opEndSession, actor); err != nil {
		return GameSession{}, err
	}

	session, err := s.loadOwnedSession(ctx, s.db, opEndSession, actor, sessionID)
	if err != nil {
		return GameSession{}, err
	}
	if !session.IsActive {
		return session, nil
	}
	ended, err := s.finishSession(s.db.WithContext(ctx), session.ID)
	if err != nil {
		return GameSession{}, s.writeFailed(opEndSession, err, zap.String("session_id", session.ID))
	}

	var stored GameSession
	if err := s.db.WithContext(ctx).Where("id = ?", session.ID).Take(&stored).Error; err != nil {
		s.logError(opEndSession, reasonQueryFailed, err, zap.String("session_id", session.ID))
		return GameSession{}, newServiceError(opEndSession, reasonQueryFailed, err)
	}
	if !ended {
		return stored, nil
	}
	s.countCompletedGame(ctx, opEndSession, stored.OwnerID)
	s.notify(stored.ID, ChangeSession, stored.ID)
	return stored, nil
}

// finishSession flips an active session to ended and reports whether this call did it.
func (s *Service) finishSession(tx *gorm.DB, sessionID string) (bool, error) {
	result := tx.Model(&GameSession{}).
		Where("id = ? AND is_active = ?", sessionID, true).
		Updates(map[string]interface{}{"is_active": false, "ended_at": s.now()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// countCompletedGame bumps the owner's counter. The session is already ended, so a
// counter failure is logged and not returned.
func (s *Service) countCompletedGame(ctx context.Context, operation, ownerID string) {
	if s.counter == nil {
		return
	}
	if err := s.counter.IncrementCompletedGames(ctx, ownerID); err != nil {
		s.logError(operation, "counter_failed", err, zap.String("owner_id", ownerID))
	}
}

// DeleteSession removes a session and every event it owns.
func (s *Service) DeleteSession(ctx context.Context, actor Actor, sessionID string) error {
	if err := s.guard(opDeleteSession, actor); err != nil {
		return err
	}

	var deletedID string
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.loadOwnedSession(ctx, tx, opDeleteSession, actor, sessionID)
		if err != nil {
			return err
		}
		children := []interface{}{&PlayerTransaction{}, &DealerDown{}, &Expense{}, &TillCount{}, &SessionMember{}}
		for _, child := range children {
			if err := tx.Where("session_id = ?", session.ID).Delete(child).Error; err != nil {
				return s.writeFailed(opDeleteSession, err, zap.String("session_id", session.ID))
			}
		}
		if err := tx.Where("id = ?", session.ID).Delete(&GameSession{}).Error; err != nil {
			return s.writeFailed(opDeleteSession, err, zap.String("session_id", session.ID))
		}
		deletedID = session.ID
		return nil
	})
	if txErr != nil {
		return txErr
	}

	s.notify(deletedID, ChangeSession, deletedID)
	return nil
}

// GetSession returns a session visible to the actor.
func (s *Service) GetSession(ctx context.Context, actor Actor, sessionID string) (GameSession, error) {
	if err := s.guard(opGetSession, actor); err != nil {
		return GameSession{}, err
	}
	access, err := s.loadAccess(ctx, s.db, opGetSession, actor, sessionID)
	if err != nil {
		return GameSession{}, err
	}
	return access.session, nil
}

// ListSessions returns sessions the actor owns or joined, newest first.
func (s *Service) ListSessions(ctx context.Context, actor Actor) ([]GameSession, error) {
	if err := s.guard(opListSessions, actor); err != nil {
		return nil, err
	}
	var sessions []GameSession
	memberOf := s.db.Model(&SessionMember{}).Select("session_id").Where("user_id = ?", actor.UserID)
	if err := s.db.WithContext(ctx).
		Where("owner_id = ? OR id IN (?)", actor.UserID, memberOf).
		Order("started_at DESC").
		Find(&sessions).Error; err != nil {
		s.logError(opListSessions, reasonQueryFailed, err, zap.String("user_id", actor.UserID))
		return nil, newServiceError(opListSessions, reasonQueryFailed, err)
	}
	return sessions, nil
}

// ActiveSession returns the actor's running session.
func (s *Service) ActiveSession(ctx context.Context, actor Actor) (GameSession, error) {
	if err := s.guard(opActiveSession, actor); err != nil {
		return GameSession{}, err
	}
	var session GameSession
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND is_active = ?", actor.UserID, true).
		Order("started_at DESC").
		Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return GameSession{}, newServiceError(opActiveSession, reasonNotFound, ErrNotFound)
	}
	if err != nil {
		s.logError(opActiveSession, reasonQueryFailed, err, zap.String("user_id", actor.UserID))
		return GameSession{}, newServiceError(opActiveSession, reasonQueryFailed, err)
	}
	return session, nil
}

// UpdateTotalRake records the end-of-night drop count. Zero reverts to per-down rake.
func (s *Service) UpdateTotalRake(ctx context.Context, actor Actor, sessionID string, amount decimal.Decimal) (GameSession, error) {
	if err := s.guard(opUpdateTotalRake, actor); err != nil {
		return GameSession{}, err
	}
	rake, err := requireNonNegativeAmount("totalRake", amount)
	if err != nil {
		return GameSession{}, newServiceError(opUpdateTotalRake, reasonInvalidInput, err)
	}

	session, err := s.loadOwnedSession(ctx, s.db, opUpdateTotalRake, actor, sessionID)
	if err != nil {
		return GameSession{}, err
	}
	if err := s.db.WithContext(ctx).Model(&GameSession{}).Where("id = ?", session.ID).Update("total_rake", rake).Error; err != nil {
		return GameSession{}, s.writeFailed(opUpdateTotalRake, err, zap.String("session_id", session.ID))
	}
	session.TotalRake = rake

	s.notify(session.ID, ChangeSession, session.ID)
	return session, nil
}

// AddMember lets another user co-edit the session.
func (s *Service) AddMember(ctx context.Context, actor Actor, sessionID, userID string) (SessionMember, error) {
	if err := s.guard(opAddMember, actor); err != nil {
		return SessionMember{}, err
	}
	memberID := strings.TrimSpace(userID)
	if memberID == "" {
		return SessionMember{}, newServiceError(opAddMember, reasonInvalidInput, validationError("userId is required"))
	}

	session, err := s.loadOwnedSession(ctx, s.db, opAddMember, actor, sessionID)
	if err != nil {
		return SessionMember{}, err
	}
	if memberID == session.OwnerID {
		return SessionMember{}, newServiceError(opAddMember, reasonInvalidInput, validationError("owner is already part of the session"))
	}

	member := SessionMember{SessionID: session.ID, UserID: memberID, JoinedAt: s.now()}
	if err := s.db.WithContext(ctx).Where(SessionMember{SessionID: session.ID, UserID: memberID}).FirstOrCreate(&member).Error; err != nil {
		return SessionMember{}, s.writeFailed(opAddMember, err, zap.String("session_id", session.ID))
	}
	return member, nil
}

// LoadEvents reads a session and all its events. Aggregation starts only after every
// read has completed.
func (s *Service) LoadEvents(ctx context.Context, actor Actor, sessionID string) (Events, error) {
	if err := s.guard(opLoadEvents, actor); err != nil {
		return Events{}, err
	}
	access, err := s.loadAccess(ctx, s.db, opLoadEvents, actor, sessionID)
	if err != nil {
		return Events{}, err
	}

	events := Events{Session: access.session}
	db := s.db.WithContext(ctx)
	if err := db.Where("session_id = ?", access.session.ID).Order("timestamp ASC, id ASC").Find(&events.Transactions).Error; err != nil {
		s.logError(opLoadEvents, reasonQueryFailed, err, zap.String("session_id", access.session.ID))
		return Events{}, newServiceError(opLoadEvents, reasonQueryFailed, err)
	}
	if err := db.Where("session_id = ?", access.session.ID).Order("timestamp ASC, id ASC").Find(&events.DealerDowns).Error; err != nil {
		s.logError(opLoadEvents, reasonQueryFailed, err, zap.String("session_id", access.session.ID))
		return Events{}, newServiceError(opLoadEvents, reasonQueryFailed, err)
	}
	if err := db.Where("session_id = ?", access.session.ID).Order("timestamp ASC, id ASC").Find(&events.Expenses).Error; err != nil {
		s.logError(opLoadEvents, reasonQueryFailed, err, zap.String("session_id", access.session.ID))
		return Events{}, newServiceError(opLoadEvents, reasonQueryFailed, err)
	}
	return events, nil
}

// Summary aggregates the session's events.
func (s *Service) Summary(ctx context.Context, actor Actor, sessionID string) (SessionSummary, error) {
	if err := s.guard(opSummary, actor); err != nil {
		return SessionSummary{}, err
	}
	events, err := s.LoadEvents(ctx, actor, sessionID)
	if err != nil {
		return SessionSummary{}, err
	}

	transactions := events.LedgerTransactions()
	downs := events.LedgerDealerDowns()
	return SessionSummary{
		Session: events.Session,
		Summary: ledger.ComputeSummary(events.Session.Ledger(), transactions, downs, events.LedgerExpenses()),
		Players: ledger.PlayerStandings(transactions),
		Dealers: ledger.DealerStandings(downs),
	}, nil
}
