package games

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers both absent records and records the actor may not see.
	ErrNotFound = errors.New("games: not found")
	// ErrUnauthorized indicates there is no authenticated actor.
	ErrUnauthorized = errors.New("games: unauthorized")
	// ErrForbidden indicates the actor can see the session but does not own it.
	ErrForbidden = errors.New("games: forbidden")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("games: validation failed")

	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
)

// ServiceError carries a stable operation.reason code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew          = "games.service.new"
	opStartSession        = "games.start_session"
	opEndSession          = "games.end_session"
	opDeleteSession       = "games.delete_session"
	opGetSession          = "games.get_session"
	opListSessions        = "games.list_sessions"
	opActiveSession       = "games.active_session"
	opUpdateTotalRake     = "games.update_total_rake"
	opAddMember           = "games.add_member"
	opLoadEvents          = "games.load_events"
	opSummary             = "games.summary"
	opCreateTransaction   = "games.create_transaction"
	opUpdateTransaction   = "games.update_transaction"
	opDeleteTransaction   = "games.delete_transaction"
	opMarkCreditPaid      = "games.mark_credit_paid"
	opCreateDealerDown    = "games.create_dealer_down"
	opUpdateDealerDown    = "games.update_dealer_down"
	opDeleteDealerDown    = "games.delete_dealer_down"
	opClaimRake           = "games.claim_rake"
	opClaimTipsByDealer   = "games.claim_tips_by_dealer"
	opCreateExpense       = "games.create_expense"
	opUpdateExpense       = "games.update_expense"
	opDeleteExpense       = "games.delete_expense"
	opMarkExpensePaidOut  = "games.mark_expense_paid_out"
	opRecordTillCount     = "games.record_till_count"
	opListTillCounts      = "games.list_till_counts"
	reasonMissingDatabase = "missing_database"
	reasonMissingActor    = "missing_actor"
	reasonNotFound        = "not_found"
	reasonForbidden       = "forbidden"
	reasonInvalidInput    = "invalid_input"
	reasonIDFailed        = "id_generation_failed"
	reasonQueryFailed     = "query_failed"
	reasonWriteFailed     = "write_failed"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// validationError wraps ErrValidation with a field-specific message.
func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
