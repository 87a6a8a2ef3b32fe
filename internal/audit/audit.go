package audit

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// OperationType represents the type of operation performed
type OperationType string

const (
	OperationCreate  OperationType = "CREATE"
	OperationUpdate  OperationType = "UPDATE"
	OperationRead    OperationType = "READ"
	OperationShare   OperationType = "SHARE"
	OperationArchive OperationType = "ARCHIVE"
)

// ResourceType represents the type of resource being accessed
type ResourceType string

const (
	ResourcePet       ResourceType = "pet"
	ResourceDiagnosis ResourceType = "diagnosis"
	ResourceCareLog   ResourceType = "care_log"
	ResourceBooking   ResourceType = "booking"
	ResourcePacket    ResourceType = "previsit_packet"
)

// Entry represents an audit log entry
type Entry struct {
	ID             string
	GuardianID     string
	OperationType  OperationType
	ResourceType   ResourceType
	ResourceID     string
	Timestamp      time.Time
	IPAddress      string
	UserAgent      string
	AdditionalData map[string]interface{}
}

// Logger handles audit logging. Diagnosis records carry health data, so
// every create, share and read of one leaves a trail.
type Logger struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewLogger creates a new audit logger
func NewLogger(db *pgxpool.Pool, logger *zap.Logger) *Logger {
	return &Logger{
		db:     db,
		logger: logger,
	}
}

// Log creates an audit log entry
func (l *Logger) Log(ctx context.Context, entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	l.logger.Info("Audit log entry",
		zap.String("guardian_id", entry.GuardianID),
		zap.String("operation", string(entry.OperationType)),
		zap.String("resource_type", string(entry.ResourceType)),
		zap.String("resource_id", entry.ResourceID),
		zap.Time("timestamp", entry.Timestamp),
		zap.String("ip_address", entry.IPAddress),
	)

	query := `
		INSERT INTO audit_logs (
			guardian_id, operation_type, resource_type, resource_id,
			timestamp, ip_address, user_agent, additional_data
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := l.db.Exec(ctx, query,
		entry.GuardianID,
		entry.OperationType,
		entry.ResourceType,
		entry.ResourceID,
		entry.Timestamp,
		entry.IPAddress,
		entry.UserAgent,
		entry.AdditionalData,
	)

	if err != nil {
		l.logger.Error("Failed to write audit log to database",
			zap.Error(err),
			zap.String("guardian_id", entry.GuardianID),
			zap.String("operation", string(entry.OperationType)),
			zap.String("resource_type", string(entry.ResourceType)),
		)
		return err
	}

	return nil
}

// LogCreate logs a CREATE operation
func (l *Logger) LogCreate(ctx context.Context, guardianID string, resourceType ResourceType, resourceID, ipAddress, userAgent string) error {
	return l.Log(ctx, Entry{
		GuardianID:    guardianID,
		OperationType: OperationCreate,
		ResourceType:  resourceType,
		ResourceID:    resourceID,
		IPAddress:     ipAddress,
		UserAgent:     userAgent,
	})
}

// LogRead logs a READ operation on a health resource
func (l *Logger) LogRead(ctx context.Context, guardianID string, resourceType ResourceType, resourceID, ipAddress, userAgent string) error {
	return l.Log(ctx, Entry{
		GuardianID:    guardianID,
		OperationType: OperationRead,
		ResourceType:  resourceType,
		ResourceID:    resourceID,
		IPAddress:     ipAddress,
		UserAgent:     userAgent,
	})
}

// LogShare logs a SHARE operation, recording who the record was exposed to
func (l *Logger) LogShare(ctx context.Context, guardianID, resourceID, ipAddress, userAgent string, targets map[string]interface{}) error {
	return l.Log(ctx, Entry{
		GuardianID:     guardianID,
		OperationType:  OperationShare,
		ResourceType:   ResourceDiagnosis,
		ResourceID:     resourceID,
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
		AdditionalData: targets,
	})
}

// LogArchive logs an ARCHIVE operation
func (l *Logger) LogArchive(ctx context.Context, guardianID string, resourceType ResourceType, resourceID, ipAddress, userAgent string) error {
	return l.Log(ctx, Entry{
		GuardianID:    guardianID,
		OperationType: OperationArchive,
		ResourceType:  resourceType,
		ResourceID:    resourceID,
		IPAddress:     ipAddress,
		UserAgent:     userAgent,
	})
}

// GetEntries retrieves audit logs for a guardian
func (l *Logger) GetEntries(ctx context.Context, guardianID string, limit int) ([]Entry, error) {
	query := `
		SELECT guardian_id, operation_type, resource_type, resource_id,
		       timestamp, ip_address, user_agent
		FROM audit_logs
		WHERE guardian_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := l.db.Query(ctx, query, guardianID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		err := rows.Scan(
			&entry.GuardianID,
			&entry.OperationType,
			&entry.ResourceType,
			&entry.ResourceID,
			&entry.Timestamp,
			&entry.IPAddress,
			&entry.UserAgent,
		)
		if err != nil {
			l.logger.Error("Failed to scan audit log", zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
