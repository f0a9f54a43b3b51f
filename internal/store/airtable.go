// ABOUTME: Airtable implementation of DeviceStore over the Airtable REST API
// ABOUTME: Mirrors the hosted users table layout with first-class columns

package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mehanizm/airtable"
)

// Airtable column names. The record is fully structured: the device name,
// secret and invite code are separate columns, validated at write time.
const (
	fieldUser   = "user"
	fieldSecret = "secret"
	fieldInvite = "invite"
	fieldActive = "enabled"
	fieldAdmin  = "admin"
)

// AirtableStore implements the DeviceStore interface against an Airtable
// base. All reads happen on the cache-refresh path, so per-call HTTP latency
// never touches token verification.
type AirtableStore struct {
	table  *airtable.Table
	logger *slog.Logger
}

// NewAirtableStore creates a DeviceStore backed by the given Airtable table.
func NewAirtableStore(apiKey, baseID, tableName string) *AirtableStore {
	client := airtable.NewClient(apiKey)
	return &AirtableStore{
		table:  client.GetTable(baseID, tableName),
		logger: slog.Default().With("component", "store"),
	}
}

// Ensure AirtableStore implements DeviceStore.
var _ DeviceStore = (*AirtableStore)(nil)

// ListEnabled returns all devices whose enabled checkbox is set, following
// pagination offsets until the table is exhausted.
func (a *AirtableStore) ListEnabled(ctx context.Context) ([]*Device, error) {
	var devices []*Device
	offset := ""

	for {
		cfg := a.table.GetRecords().WithFilterFormula("{" + fieldActive + "}")
		if offset != "" {
			cfg = cfg.WithOffset(offset)
		}

		result, err := cfg.Do()
		if err != nil {
			return nil, fmt.Errorf("listing enabled devices: %w", err)
		}

		for _, rec := range result.Records {
			devices = append(devices, recordToDevice(rec))
		}

		if result.Offset == "" {
			break
		}
		offset = result.Offset
	}

	return devices, nil
}

// Insert creates a new row in the Airtable table.
func (a *AirtableStore) Insert(ctx context.Context, d *Device) error {
	records := &airtable.Records{
		Records: []*airtable.Record{
			{
				Fields: map[string]any{
					fieldUser:   d.Name,
					fieldSecret: d.AuthSecret,
					fieldInvite: d.InviteCode,
					fieldActive: d.Enabled,
					fieldAdmin:  d.IsAdmin,
				},
			},
		},
	}

	created, err := a.table.AddRecords(records)
	if err != nil {
		return fmt.Errorf("inserting device: %w", err)
	}
	if len(created.Records) > 0 {
		d.ID = created.Records[0].ID
	}

	a.logger.Info("created device", "id", d.ID, "name", d.Name)
	return nil
}

// FindByInvite retrieves a device by its invite code.
func (a *AirtableStore) FindByInvite(ctx context.Context, inviteCode string) (*Device, error) {
	rec, err := a.findRecordByInvite(inviteCode)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return recordToDevice(rec), nil
}

// UpdateEnabled sets the enabled checkbox on the row with the given invite
// code, returning the number of rows changed.
func (a *AirtableStore) UpdateEnabled(ctx context.Context, inviteCode string, enabled bool) (int64, error) {
	rec, err := a.findRecordByInvite(inviteCode)
	if err != nil {
		return 0, err
	}
	if rec == nil {
		return 0, nil
	}

	if _, err := rec.UpdateRecordPartial(map[string]any{fieldActive: enabled}); err != nil {
		return 0, fmt.Errorf("updating device enabled flag: %w", err)
	}

	a.logger.Info("updated device", "invite_code", inviteCode, "enabled", enabled)
	return 1, nil
}

// Delete removes the row with the given invite code.
func (a *AirtableStore) Delete(ctx context.Context, inviteCode string) (int64, error) {
	rec, err := a.findRecordByInvite(inviteCode)
	if err != nil {
		return 0, err
	}
	if rec == nil {
		return 0, nil
	}

	if _, err := a.table.DeleteRecords([]string{rec.ID}); err != nil {
		return 0, fmt.Errorf("deleting device: %w", err)
	}

	a.logger.Info("deleted device", "invite_code", inviteCode)
	return 1, nil
}

// Close is a no-op; the Airtable client holds no persistent connection.
func (a *AirtableStore) Close() error {
	return nil
}

// findRecordByInvite returns the first record matching the invite code, or
// nil when no record matches. Invite codes are uniform alphanumerics, so no
// formula escaping is needed.
func (a *AirtableStore) findRecordByInvite(inviteCode string) (*airtable.Record, error) {
	formula := fmt.Sprintf("{%s} = %q", fieldInvite, inviteCode)

	result, err := a.table.GetRecords().WithFilterFormula(formula).Do()
	if err != nil {
		return nil, fmt.Errorf("finding device by invite: %w", err)
	}
	if len(result.Records) == 0 {
		return nil, nil
	}
	return result.Records[0], nil
}

// recordToDevice converts an Airtable record into a Device. Missing or
// mistyped cells degrade to zero values rather than failing the refresh.
func recordToDevice(rec *airtable.Record) *Device {
	d := &Device{
		ID:         rec.ID,
		Name:       fieldString(rec.Fields, fieldUser),
		AuthSecret: fieldString(rec.Fields, fieldSecret),
		InviteCode: fieldString(rec.Fields, fieldInvite),
		Enabled:    fieldBool(rec.Fields, fieldActive),
		IsAdmin:    fieldBool(rec.Fields, fieldAdmin),
	}
	if t, err := time.Parse(time.RFC3339, rec.CreatedTime); err == nil {
		d.CreatedAt = t
	}
	return d
}

func fieldString(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func fieldBool(fields map[string]any, key string) bool {
	if v, ok := fields[key].(bool); ok {
		return v
	}
	return false
}
