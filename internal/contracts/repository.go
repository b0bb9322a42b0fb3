package contracts

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	CreateContract(ctx context.Context, contract *Contract) error
	GetContractByID(ctx context.Context, id uuid.UUID) (*Contract, error)
	GetContractByNumber(ctx context.Context, number string) (*Contract, error)
	ListContracts(ctx context.Context, status *ContractStatus) ([]Contract, error)
	UpdateContract(ctx context.Context, contract *Contract) error

	CreateSigner(ctx context.Context, signer *Signer) error
	GetSignerByID(ctx context.Context, id uuid.UUID) (*Signer, error)
	ListSigners(ctx context.Context, contractID uuid.UUID) ([]Signer, error)
	UpdateSigner(ctx context.Context, signer *Signer) error

	CreateConsent(ctx context.Context, consent *ConsentRecord) error
	GetConsentBySigner(ctx context.Context, signerID uuid.UUID) (*ConsentRecord, error)
	CreateIntent(ctx context.Context, intent *IntentRecord) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateContract(ctx context.Context, contract *Contract) error {
	query := `
		INSERT INTO contracts (
			id, contract_number, title, status, sequential_signing, s3_bucket,
			document_key, document_hash, signed_document_key, signed_document_hash,
			seal_hash, signed_at, sent_at, created_by, metadata
		) VALUES (
			:id, :contract_number, :title, :status, :sequential_signing, :s3_bucket,
			:document_key, :document_hash, :signed_document_key, :signed_document_hash,
			:seal_hash, :signed_at, :sent_at, :created_by, :metadata
		)`
	_, err := r.db.NamedExecContext(ctx, query, contract)
	return err
}

func (r *postgresRepository) GetContractByID(ctx context.Context, id uuid.UUID) (*Contract, error) {
	var contract Contract
	err := r.db.GetContext(ctx, &contract, "SELECT * FROM contracts WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &contract, err
}

func (r *postgresRepository) GetContractByNumber(ctx context.Context, number string) (*Contract, error) {
	var contract Contract
	err := r.db.GetContext(ctx, &contract, "SELECT * FROM contracts WHERE contract_number = $1", number)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &contract, err
}

func (r *postgresRepository) ListContracts(ctx context.Context, status *ContractStatus) ([]Contract, error) {
	var contracts []Contract
	query := "SELECT * FROM contracts WHERE 1=1"
	var args []interface{}

	if status != nil {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, *status)
	}
	query += " ORDER BY created_at DESC"

	err := r.db.SelectContext(ctx, &contracts, query, args...)
	return contracts, err
}

func (r *postgresRepository) UpdateContract(ctx context.Context, contract *Contract) error {
	query := `
		UPDATE contracts SET
			status = :status,
			document_hash = :document_hash,
			signed_document_key = :signed_document_key,
			signed_document_hash = :signed_document_hash,
			seal_hash = :seal_hash,
			signed_at = :signed_at,
			sent_at = :sent_at,
			metadata = :metadata
		WHERE id = :id`
	_, err := r.db.NamedExecContext(ctx, query, contract)
	return err
}

func (r *postgresRepository) CreateSigner(ctx context.Context, signer *Signer) error {
	query := `
		INSERT INTO signers (
			id, contract_id, name, email, role, signer_order, status,
			signature_method, signature_key, signature_hash, signed_at, viewed_at,
			consent_given, consent_timestamp, consent_method,
			authentication_verified, authentication_method, ip_address, user_agent
		) VALUES (
			:id, :contract_id, :name, :email, :role, :signer_order, :status,
			:signature_method, :signature_key, :signature_hash, :signed_at, :viewed_at,
			:consent_given, :consent_timestamp, :consent_method,
			:authentication_verified, :authentication_method, :ip_address, :user_agent
		)`
	_, err := r.db.NamedExecContext(ctx, query, signer)
	return err
}

func (r *postgresRepository) GetSignerByID(ctx context.Context, id uuid.UUID) (*Signer, error) {
	var signer Signer
	err := r.db.GetContext(ctx, &signer, "SELECT * FROM signers WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &signer, err
}

func (r *postgresRepository) ListSigners(ctx context.Context, contractID uuid.UUID) ([]Signer, error) {
	var signers []Signer
	err := r.db.SelectContext(ctx, &signers, "SELECT * FROM signers WHERE contract_id = $1 ORDER BY signer_order ASC", contractID)
	return signers, err
}

func (r *postgresRepository) UpdateSigner(ctx context.Context, signer *Signer) error {
	query := `
		UPDATE signers SET
			status = :status,
			signature_method = :signature_method,
			signature_key = :signature_key,
			signature_hash = :signature_hash,
			signed_at = :signed_at,
			viewed_at = :viewed_at,
			consent_given = :consent_given,
			consent_timestamp = :consent_timestamp,
			consent_method = :consent_method,
			authentication_verified = :authentication_verified,
			authentication_method = :authentication_method,
			ip_address = :ip_address,
			user_agent = :user_agent
		WHERE id = :id`
	_, err := r.db.NamedExecContext(ctx, query, signer)
	return err
}

func (r *postgresRepository) CreateConsent(ctx context.Context, consent *ConsentRecord) error {
	query := `
		INSERT INTO consent_records (
			id, signer_id, contract_id, given, timestamp, consent_text,
			method, ip_address, user_agent, geolocation
		) VALUES (
			:id, :signer_id, :contract_id, :given, :timestamp, :consent_text,
			:method, :ip_address, :user_agent, :geolocation
		)`
	_, err := r.db.NamedExecContext(ctx, query, consent)
	return err
}

func (r *postgresRepository) GetConsentBySigner(ctx context.Context, signerID uuid.UUID) (*ConsentRecord, error) {
	var consent ConsentRecord
	err := r.db.GetContext(ctx, &consent, "SELECT * FROM consent_records WHERE signer_id = $1 ORDER BY timestamp DESC LIMIT 1", signerID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &consent, err
}

func (r *postgresRepository) CreateIntent(ctx context.Context, intent *IntentRecord) error {
	query := `
		INSERT INTO intent_records (
			id, signer_id, contract_id, action, explicit, witnessed, ip_address, timestamp
		) VALUES (
			:id, :signer_id, :contract_id, :action, :explicit, :witnessed, :ip_address, :timestamp
		)`
	_, err := r.db.NamedExecContext(ctx, query, intent)
	return err
}
