// Package lifecycle decides what a contract in a given status is allowed to
// do. It is a pure decision layer over already-fetched contract state: it
// never touches the store or the network.
package lifecycle

import (
	"errors"
	"strings"

	"github.com/vistaprop/backoffice/model"
)

// ErrContractLocked signals a mutation or transition attempt on a terminal
// contract. Callers surface it as a blocking warning and make no network call.
var ErrContractLocked = errors.New("contract is closed and can no longer be modified")

// ErrUnknownStatus signals a transition target outside the recognized set.
var ErrUnknownStatus = errors.New("unknown contract status")

// Normalize canonicalizes a raw status label: trimmed, uppercased.
func Normalize(status string) string {
	return strings.ToUpper(strings.TrimSpace(status))
}

// IsKnown reports whether status belongs to the recognized label set.
func IsKnown(status string) bool {
	switch Normalize(status) {
	case model.StatusInProcess, model.StatusOnHold, model.StatusClosed, model.StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether status locks the contract. ON_HOLD is never
// terminal, whatever casing or padding it arrives with.
func IsTerminal(status string) bool {
	switch Normalize(status) {
	case model.StatusClosed, model.StatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether a contract currently in current may move to
// requested. Unknown targets are always rejected. A terminal contract only
// accepts a re-confirmation of its own status.
func CanTransition(current, requested string) bool {
	if !IsKnown(requested) {
		return false
	}
	if IsTerminal(current) {
		return Normalize(current) == Normalize(requested)
	}
	return true
}

// CanMutate reports whether a contract in the given status accepts edits:
// payment additions, document additions/deletions, required-flag toggles and
// financial changes all gate on this before calling any collaborator.
func CanMutate(status string) bool {
	return !IsTerminal(status)
}

// CheckTransition is CanTransition with the rejection reason attached.
func CheckTransition(current, requested string) error {
	if !IsKnown(requested) {
		return ErrUnknownStatus
	}
	if !CanTransition(current, requested) {
		return ErrContractLocked
	}
	return nil
}

// DisplayStatus maps internal statuses to the label the portal shows.
// ON_HOLD is presented as IN_PROCESS.
func DisplayStatus(status string) string {
	normalized := Normalize(status)
	if normalized == model.StatusOnHold {
		return model.StatusInProcess
	}
	return normalized
}
