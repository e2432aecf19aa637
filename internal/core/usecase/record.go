package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/strataworks/geoassist/internal/core/domain"
	"github.com/strataworks/geoassist/internal/core/ports"
)

// RecordUseCase persists answer audit events consumed from the queue.
type RecordUseCase struct {
	store ports.QueryLogStore
}

func NewRecordUseCase(store ports.QueryLogStore) *RecordUseCase {
	return &RecordUseCase{store: store}
}

func (uc *RecordUseCase) Record(ctx context.Context, record domain.AnswerRecord) error {
	if strings.TrimSpace(record.TraceID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "record answer", errors.New("trace_id is required"))
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	if err := uc.store.InsertAnswerRecord(ctx, record); err != nil {
		return fmt.Errorf("insert answer record: %w", err)
	}

	slog.Info("answer recorded",
		"trace_id", record.TraceID,
		"action", record.Action,
		"citations", record.CitationCount)
	return nil
}
