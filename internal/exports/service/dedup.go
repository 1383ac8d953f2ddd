package service

import (
	"context"
	"log/slog"

	"fsbo_finder_backend/internal/ghl"
	"fsbo_finder_backend/platform/logger"
	"fsbo_finder_backend/platform/phone"
)

// ContactSearcher finds CRM contacts by exact phone match.
type ContactSearcher interface {
	SearchContactByPhone(ctx context.Context, accessToken, locationID, phone string) (*ghl.Contact, error)
}

// DedupStrategy decides whether a property maps to an existing CRM contact.
// FindExisting never fails the export: lookup errors degrade to "no match"
// so a flaky CRM search produces at worst a duplicate contact, never a
// dropped lead.
type DedupStrategy interface {
	FindExisting(ctx context.Context, accessToken, locationID string, property ContactSource) *ghl.Contact
}

// ContactSource is the subset of a property the deduplicator needs.
type ContactSource struct {
	Address    string
	OwnerPhone string
}

// PhoneDeduplicator matches on the owner phone normalized to E.164.
// Properties without a usable phone are never matched, so they always
// produce a fresh contact.
type PhoneDeduplicator struct {
	contacts ContactSearcher
	log      *logger.Logger
}

func NewPhoneDeduplicator(contacts ContactSearcher, log *logger.Logger) *PhoneDeduplicator {
	return &PhoneDeduplicator{contacts: contacts, log: log}
}

func (d *PhoneDeduplicator) FindExisting(ctx context.Context, accessToken, locationID string, property ContactSource) *ghl.Contact {
	if !phone.HasUsable(property.OwnerPhone) {
		return nil
	}

	normalized := phone.NormalizeE164(property.OwnerPhone)
	contact, err := d.contacts.SearchContactByPhone(ctx, accessToken, locationID, normalized)
	if err != nil {
		d.log.Warn("contact dedup lookup failed, treating as new",
			slog.String("address", property.Address),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return contact
}
