package platform

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// Error taxonomy for platform calls. Per-event failures recover locally;
// only persistent connectivity loss escalates (see watchdog).
var (
	// ErrPermissionDenied: the platform refused the action. Logged as a
	// warning, never fatal to the engine.
	ErrPermissionDenied = errors.New("platform: permission denied")

	// ErrNotFound: guild/member/role/channel vanished mid-operation.
	ErrNotFound = errors.New("platform: not found")

	// ErrAuditUnavailable: the audit feed cannot be read. Callers must
	// suppress verdicts rather than guess an actor.
	ErrAuditUnavailable = errors.New("platform: audit log unavailable")
)

// MapError folds a discordgo REST error into the taxonomy. Anything that is
// not a recognized status is treated as transient and retryable.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var rerr *discordgo.RESTError
	if errors.As(err, &rerr) && rerr.Response != nil {
		switch rerr.Response.StatusCode {
		case http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		}
	}
	return err
}

func IsForbidden(err error) bool { return errors.Is(err, ErrPermissionDenied) }
func IsNotFound(err error) bool  { return errors.Is(err, ErrNotFound) }

// IsTransient reports whether the error is worth a bounded retry.
func IsTransient(err error) bool {
	return err != nil && !IsForbidden(err) && !IsNotFound(err) && !errors.Is(err, ErrAuditUnavailable)
}
