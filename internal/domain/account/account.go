// Package account models a client's real-world bank or credit account. The
// provider's account id is not stable across relinks to the same institution,
// so the internal surrogate id owns identity and the "current" pointers move
// as linkage changes. When the external id changes, identity is reconstructed
// heuristically from (institution, mask, subtype).
package account

import (
	"time"

	"github.com/google/uuid"
)

// Account represents one reconciled bank account owned by a client
type Account struct {
	ID                int64     `json:"id"` // Internal surrogate id
	ClientID          uuid.UUID `json:"client_id"`
	InstitutionID     string    `json:"institution_id"`
	CurrentItemID     string    `json:"current_item_id"`
	CurrentExternalID string    `json:"current_external_id"` // Provider account id, mutable across relinks
	Name              string    `json:"name"`
	Mask              string    `json:"mask"`    // Last digits, may be empty
	Subtype           string    `json:"subtype"` // checking, savings, credit card, ...
	Active            bool      `json:"active"`
	LastSeen          time.Time `json:"last_seen"`
}

// Link maps one (client, item, external account id) observation onto an
// internal account. Upserted on every relink, deleted by cascade with its item.
type Link struct {
	ClientID   uuid.UUID `json:"client_id"`
	ItemID     string    `json:"item_id"`
	ExternalID string    `json:"external_id"`
	AccountID  int64     `json:"account_id"`
	LastSeen   time.Time `json:"last_seen"`
}

// MergeOutcome classifies a merge-key lookup. The (institution, mask,
// subtype) key is heuristic: an institution can issue two accounts with the
// same mask and subtype, in which case the match is ambiguous and no history
// is migrated.
type MergeOutcome int

const (
	MergeNoMatch MergeOutcome = iota
	MergeMatched
	MergeAmbiguous
)

// MergeMatch is the result of resolving merge candidates for an account
type MergeMatch struct {
	Outcome    MergeOutcome
	AccountID  int64   // Valid only when Outcome == MergeMatched
	Candidates []int64 // All candidate ids, for logging on ambiguity
}

// ResolveMerge classifies the candidate set returned by a merge-key query
func ResolveMerge(candidates []int64) MergeMatch {
	switch len(candidates) {
	case 0:
		return MergeMatch{Outcome: MergeNoMatch}
	case 1:
		return MergeMatch{Outcome: MergeMatched, AccountID: candidates[0], Candidates: candidates}
	default:
		return MergeMatch{Outcome: MergeAmbiguous, Candidates: candidates}
	}
}
