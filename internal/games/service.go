package games

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var noOpLogger = zap.NewNop()

// Actor is the authenticated user performing an operation.
type Actor struct {
	UserID   string
	Initials string
}

// IDProvider issues identifiers for new records.
type IDProvider interface {
	NewID() (string, error)
}

// CompletedGameCounter records that an owner finished a game.
type CompletedGameCounter interface {
	IncrementCompletedGames(ctx context.Context, userID string) error
}

// ChangeNotifier is told about every committed mutation of a session.
type ChangeNotifier interface {
	SessionChanged(sessionID string, kind ChangeKind, recordIDs []string)
}

// ChangeKind names the record family a change touched.
type ChangeKind string

const (
	ChangeSession     ChangeKind = "session"
	ChangeTransaction ChangeKind = "transaction"
	ChangeDealerDown  ChangeKind = "dealer_down"
	ChangeExpense     ChangeKind = "expense"
	ChangeTillCount   ChangeKind = "till_count"
)

// ServiceConfig describes the dependencies of the session service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Counter    CompletedGameCounter
	Notifier   ChangeNotifier
	Logger     *zap.Logger
}

// Service owns game sessions and their events.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	counter    CompletedGameCounter
	notifier   ChangeNotifier
	logger     *zap.Logger
}

// NewService validates dependencies and constructs the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, reasonMissingDatabase, errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		counter:    cfg.Counter,
		notifier:   cfg.Notifier,
		logger:     logger,
	}, nil
}

// sessionAccess is the resolved relationship between an actor and a session.
type sessionAccess struct {
	session GameSession
	isOwner bool
}

// guard performs the checks shared by every operation.
func (s *Service) guard(operation string, actor Actor) error {
	if s == nil || s.db == nil {
		s.logError(operation, reasonMissingDatabase, errMissingDatabase)
		return newServiceError(operation, reasonMissingDatabase, errMissingDatabase)
	}
	if strings.TrimSpace(actor.UserID) == "" {
		return newServiceError(operation, reasonMissingActor, ErrUnauthorized)
	}
	return nil
}

// loadAccess resolves a session visible to the actor. Absent sessions and sessions the
// actor cannot see both report ErrNotFound.
func (s *Service) loadAccess(ctx context.Context, tx *gorm.DB, operation string, actor Actor, sessionID string) (sessionAccess, error) {
	var session GameSession
	err := tx.WithContext(ctx).Where("id = ?", strings.TrimSpace(sessionID)).Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sessionAccess{}, newServiceError(operation, reasonNotFound, ErrNotFound)
	}
	if err != nil {
		s.logError(operation, reasonQueryFailed, err, zap.String("session_id", sessionID))
		return sessionAccess{}, newServiceError(operation, reasonQueryFailed, err)
	}

	if session.OwnerID == actor.UserID {
		return sessionAccess{session: session, isOwner: true}, nil
	}

	var memberCount int64
	if err := tx.WithContext(ctx).
		Model(&SessionMember{}).
		Where("session_id = ? AND user_id = ?", session.ID, actor.UserID).
		Count(&memberCount).Error; err != nil {
		s.logError(operation, reasonQueryFailed, err, zap.String("session_id", sessionID))
		return sessionAccess{}, newServiceError(operation, reasonQueryFailed, err)
	}
	if memberCount == 0 {
		return sessionAccess{}, newServiceError(operation, reasonNotFound, ErrNotFound)
	}
	return sessionAccess{session: session, isOwner: false}, nil
}

// loadOwnedSession resolves a session and requires the actor to own it.
func (s *Service) loadOwnedSession(ctx context.Context, tx *gorm.DB, operation string, actor Actor, sessionID string) (GameSession, error) {
	access, err := s.loadAccess(ctx, tx, operation, actor, sessionID)
	if err != nil {
		return GameSession{}, err
	}
	if !access.isOwner {
		return GameSession{}, newServiceError(operation, reasonForbidden, ErrForbidden)
	}
	return access.session, nil
}

// loadOwnedRecord fetches a session event by id and requires the actor to own its session.
func (s *Service) loadOwnedRecord(ctx context.Context, tx *gorm.DB, operation string, actor Actor, recordID string, record sessionScoped) error {
	err := tx.WithContext(ctx).Where("id = ?", strings.TrimSpace(recordID)).Take(record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newServiceError(operation, reasonNotFound, ErrNotFound)
	}
	if err != nil {
		s.logError(operation, reasonQueryFailed, err, zap.String("record_id", recordID))
		return newServiceError(operation, reasonQueryFailed, err)
	}
	_, err = s.loadOwnedSession(ctx, tx, operation, actor, record.sessionID())
	return err
}

type sessionScoped interface {
	sessionID() string
}

func (t *PlayerTransaction) sessionID() string { return t.SessionID }
func (d *DealerDown) sessionID() string        { return d.SessionID }
func (e *Expense) sessionID() string           { return e.SessionID }

func (s *Service) newID(operation string) (string, error) {
	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(operation, reasonIDFailed, err)
		return "", newServiceError(operation, reasonIDFailed, err)
	}
	return id, nil
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

// timestampOrNow keeps client-supplied event times and fills in missing ones.
func (s *Service) timestampOrNow(value time.Time) time.Time {
	if value.IsZero() {
		return s.now()
	}
	return value.UTC()
}

func (s *Service) notify(sessionID string, kind ChangeKind, recordIDs ...string) {
	if s.notifier == nil {
		return
	}
	s.notifier.SessionChanged(sessionID, kind, recordIDs)
}

func (s *Service) writeFailed(operation string, err error, fields ...zap.Field) error {
	s.logError(operation, reasonWriteFailed, err, fields...)
	return newServiceError(operation, reasonWriteFailed, err)
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil {
		return noOpLogger
	}
	if s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("games service error", attrs...)
}
