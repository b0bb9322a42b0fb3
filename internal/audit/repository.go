package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"sealpoint/esign-portal/esign-portal-backend/internal/compliance"
	"sealpoint/esign-portal/esign-portal-backend/internal/verification"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the audit tables.
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(&Event{}, &VerificationRun{}, &ComplianceSnapshot{})
}

// Append adds one audit event. Events are append-only.
func (r *Repository) Append(ctx context.Context, contractID uuid.UUID, signerID *uuid.UUID, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	event := &Event{
		ID:         uuid.New(),
		ContractID: contractID,
		SignerID:   signerID,
		EventType:  eventType,
		Payload:    data,
		CreatedAt:  time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(event).Error
}

// ListEvents returns a contract's audit trail oldest first.
func (r *Repository) ListEvents(ctx context.Context, contractID uuid.UUID) ([]Event, error) {
	var events []Event
	err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}

// RecordVerification implements verification.AuditRecorder.
func (r *Repository) RecordVerification(ctx context.Context, contractID uuid.UUID, report *verification.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	run := &VerificationRun{
		ID:             uuid.New(),
		ContractID:     contractID,
		ContractNumber: report.ContractNumber,
		OverallStatus:  string(report.OverallStatus),
		FailedChecks:   report.Summary.Failed,
		Report:         data,
		VerifiedAt:     report.VerifiedAt,
	}
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return err
	}
	return r.Append(ctx, contractID, nil, EventVerificationRun, map[string]any{
		"overall_status": report.OverallStatus,
		"failed_checks":  report.Summary.Failed,
	})
}

// LatestVerification returns the most recent run for a contract, or nil.
func (r *Repository) LatestVerification(ctx context.Context, contractID uuid.UUID) (*VerificationRun, error) {
	var run VerificationRun
	err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("verified_at DESC").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// SaveComplianceSnapshot stores a generated compliance record for
// retention.
func (r *Repository) SaveComplianceSnapshot(ctx context.Context, record *compliance.ComplianceRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	snapshot := &ComplianceSnapshot{
		ID:          uuid.New(),
		ContractID:  record.ContractID,
		SignerID:    record.SignerID,
		Record:      data,
		GeneratedAt: record.GeneratedAt,
	}
	return r.db.WithContext(ctx).Create(snapshot).Error
}
