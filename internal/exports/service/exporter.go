// Package service implements the lead export pipeline: building deterministic
// CRM contact payloads from FSBO properties and pushing them to GoHighLevel,
// one at a time, with phone-based deduplication and an audit trail.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"fsbo_finder_backend/internal/ghl"
	"fsbo_finder_backend/internal/listings"
	"fsbo_finder_backend/platform/logger"
	"fsbo_finder_backend/platform/phone"
)

const (
	contactFirstName = "FSBO"
	contactCompany   = "For Sale By Owner"
	contactSource    = "AIRES FSBO Finder"
)

var baseTags = []string{"ai-fsbo-finder", "FSBO", "for-sale-by-owner"}

// ContactClient is the slice of the GHL API the exporter drives.
type ContactClient interface {
	CreateContact(ctx context.Context, accessToken string, payload ghl.ContactPayload) (string, error)
	UpdateContact(ctx context.Context, accessToken, contactID string, payload ghl.ContactPayload) error
}

// TokenSource resolves a usable access token for a location.
type TokenSource interface {
	AccessToken(ctx context.Context, locationID string) (string, error)
}

// AuditStore persists export audit rows.
type AuditStore interface {
	InsertExported(ctx context.Context, property listings.Property, contactID string) (uuid.UUID, error)
	MarkExported(ctx context.Context, id uuid.UUID, contactID string) error
}

// BatchItem is one property to export. ResultID, when set, points at a
// pre-inserted pending audit row that gets flipped on success; when nil the
// exporter writes a fresh audit row with no owning search.
type BatchItem struct {
	Property listings.Property
	ResultID *uuid.UUID
}

// ItemError records a single failed property within a batch.
type ItemError struct {
	PropertyID string `json:"property_id"`
	Address    string `json:"address"`
	Error      string `json:"error"`
}

// BatchResult summarizes a batch export. A batch with Errors and Exported > 0
// is a partial success; the caller decides how to report it.
type BatchResult struct {
	Exported int         `json:"exported"`
	Total    int         `json:"total"`
	Errors   []ItemError `json:"errors,omitempty"`
}

// ProgressFunc is called after each processed item with the running count.
type ProgressFunc func(processed, total int)

// Exporter pushes FSBO properties into GHL as contacts.
type Exporter struct {
	contacts ContactClient
	tokens   TokenSource
	dedup    DedupStrategy
	audit    AuditStore
	limiter  *rate.Limiter
	log      *logger.Logger
	now      func() time.Time
}

func NewExporter(contacts ContactClient, tokens TokenSource, dedup DedupStrategy, audit AuditStore, delay time.Duration, log *logger.Logger) *Exporter {
	if delay <= 0 {
		delay = 150 * time.Millisecond
	}
	return &Exporter{
		contacts: contacts,
		tokens:   tokens,
		dedup:    dedup,
		audit:    audit,
		limiter:  rate.NewLimiter(rate.Every(delay), 1),
		log:      log,
		now:      time.Now,
	}
}

// ExportProperty exports a single property and returns the resulting GHL
// contact id. An existing contact (matched by phone) is updated in place with
// its tag set merged; anything else creates a new contact.
func (e *Exporter) ExportProperty(ctx context.Context, locationID string, item BatchItem) (string, error) {
	accessToken, err := e.tokens.AccessToken(ctx, locationID)
	if err != nil {
		return "", err
	}

	property := item.Property
	payload := e.BuildContactPayload(property)

	var contactID string
	existing := e.dedup.FindExisting(ctx, accessToken, locationID, ContactSource{
		Address:    property.Address,
		OwnerPhone: ownerPhone(property),
	})
	if existing != nil {
		payload.Tags = mergeTags(existing.Tags, payload.Tags)
		if err := e.contacts.UpdateContact(ctx, accessToken, existing.ID, payload); err != nil {
			return "", fmt.Errorf("update contact %s: %w", existing.ID, err)
		}
		contactID = existing.ID
	} else {
		payload.LocationID = locationID
		contactID, err = e.contacts.CreateContact(ctx, accessToken, payload)
		if err != nil {
			return "", fmt.Errorf("create contact: %w", err)
		}
	}

	// Audit failures never undo a successful export.
	if item.ResultID != nil {
		if err := e.audit.MarkExported(ctx, *item.ResultID, contactID); err != nil {
			e.log.DatabaseError("mark result exported", err)
		}
	} else {
		if _, err := e.audit.InsertExported(ctx, property, contactID); err != nil {
			e.log.DatabaseError("insert export audit", err)
		}
	}

	return contactID, nil
}

// ExportBatch exports items sequentially with a fixed inter-call delay.
// A failed item is recorded and the batch continues; cancellation of ctx
// stops the batch at the next item boundary.
func (e *Exporter) ExportBatch(ctx context.Context, locationID string, items []BatchItem, progress ProgressFunc) BatchResult {
	result := BatchResult{Total: len(items)}

	for i, item := range items {
		if err := e.limiter.Wait(ctx); err != nil {
			result.Errors = append(result.Errors, ItemError{
				PropertyID: item.Property.ID,
				Address:    item.Property.Address,
				Error:      err.Error(),
			})
			break
		}

		if _, err := e.ExportProperty(ctx, locationID, item); err != nil {
			e.log.ExportItemFailed(locationID, item.Property.ID, err)
			result.Errors = append(result.Errors, ItemError{
				PropertyID: item.Property.ID,
				Address:    item.Property.Address,
				Error:      err.Error(),
			})
		} else {
			result.Exported++
		}

		if progress != nil {
			progress(i+1, result.Total)
		}
	}

	e.log.ExportBatchDone(locationID, result.Exported, result.Total)
	return result
}

// BuildContactPayload maps a property onto a GHL contact body. The mapping is
// deterministic: the same property always yields the same payload apart from
// the dated fsbo-{date} tag.
func (e *Exporter) BuildContactPayload(p listings.Property) ghl.ContactPayload {
	payload := ghl.ContactPayload{
		FirstName:   contactFirstName,
		LastName:    streetPart(p.Address),
		Name:        contactFirstName + " - " + p.Address,
		Address1:    p.Address,
		City:        p.City,
		State:       p.State,
		PostalCode:  p.ZipCode,
		Website:     p.ZillowLink,
		Country:     "US",
		CompanyName: contactCompany,
		Source:      contactSource,
		Tags:        e.buildTags(p),
	}

	if raw := ownerPhone(p); phone.HasUsable(raw) {
		normalized := phone.NormalizeE164(raw)
		payload.Phone = &normalized
	}

	fields := map[string]interface{}{}
	if p.Price > 0 {
		fields["price"] = p.Price
	}
	if p.Beds > 0 {
		fields["beds"] = p.Beds
	}
	if p.Baths > 0 {
		fields["baths"] = p.Baths
	}
	if p.Sqft > 0 {
		fields["sqft"] = p.Sqft
	}
	if p.YearBuilt != nil {
		fields["yearBuilt"] = *p.YearBuilt
	}
	if len(fields) > 0 {
		payload.CustomFields = fields
	}

	return payload
}

func (e *Exporter) buildTags(p listings.Property) []string {
	tags := make([]string, 0, len(baseTags)+5)
	tags = append(tags, baseTags...)
	for _, tag := range []string{p.PropertyType, p.City, p.State, p.County} {
		if strings.TrimSpace(tag) != "" {
			tags = append(tags, tag)
		}
	}

	now := e.now()
	tags = append(tags, fmt.Sprintf("fsbo-%d/%d/%d", now.Month(), now.Day(), now.Year()))
	return tags
}

// mergeTags unions existing and new tags, preserving first-seen order.
func mergeTags(existing, fresh []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(fresh))
	merged := make([]string, 0, len(existing)+len(fresh))
	for _, tag := range append(append([]string{}, existing...), fresh...) {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		merged = append(merged, tag)
	}
	return merged
}

func streetPart(address string) string {
	if idx := strings.Index(address, ","); idx >= 0 {
		return strings.TrimSpace(address[:idx])
	}
	return strings.TrimSpace(address)
}

func ownerPhone(p listings.Property) string {
	return p.ListingAgent.Phone
}
