package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/ersonp/suggestor/internal/domain/entities"
	"github.com/ersonp/suggestor/internal/domain/ports"
)

// SubmissionService accepts anonymous edit proposals.
type SubmissionService struct {
	store  ports.EditStore
	audit  ports.AuditLog
	logger zerolog.Logger
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(store ports.EditStore, audit ports.AuditLog, logger zerolog.Logger) *SubmissionService {
	return &SubmissionService{
		store:  store,
		audit:  audit,
		logger: logger.With().Str("component", "submission").Logger(),
	}
}

// Submit validates a draft and stores it as a pending edit. Any state on the
// draft is discarded.
func (s *SubmissionService) Submit(ctx context.Context, draft entities.Draft) (*entities.Edit, error) {
	draft.Wiki = strings.ToLower(strings.TrimSpace(draft.Wiki))
	if err := ValidateDraft(draft); err != nil {
		return nil, err
	}
	draft.State = entities.StatePending

	edit, err := s.store.Insert(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("%w: saving edit: %w", ports.ErrPersistence, err)
	}

	s.logger.Info().
		Int64("edit_id", edit.ID).
		Str("wiki", edit.Wiki).
		Int64("page_id", edit.PageID).
		Msg("edit submitted")
	recordAudit(ctx, s.audit, s.logger, entities.AuditEntry{
		Action: entities.AuditSubmitted,
		EditID: edit.ID,
		Details: map[string]any{
			"wiki":             edit.Wiki,
			"page_name":        edit.PageName,
			"base_revision_id": edit.BaseRevisionID,
		},
	})

	return edit, nil
}

// ValidateDraft checks the fields the review pipeline depends on.
func ValidateDraft(draft entities.Draft) error {
	switch {
	case draft.Wiki == "":
		return fmt.Errorf("%w: wiki is required", ports.ErrInvalidInput)
	case !isHostname(draft.Wiki):
		return fmt.Errorf("%w: wiki must be a hostname, got %q", ports.ErrInvalidInput, draft.Wiki)
	case !utf8.Valid(draft.Text):
		return fmt.Errorf("%w: text is not valid UTF-8", ports.ErrInvalidInput)
	case draft.BaseRevisionID <= 0:
		return fmt.Errorf("%w: base revision id must be positive", ports.ErrInvalidInput)
	case draft.PageID <= 0:
		return fmt.Errorf("%w: page id must be positive", ports.ErrInvalidInput)
	}
	return nil
}

// isHostname accepts dot-separated labels of letters, digits and hyphens.
func isHostname(s string) bool {
	if len(s) > 253 || strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") {
		return false
	}
	for _, label := range strings.Split(s, ".") {
		if label == "" || len(label) > 63 || label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, r := range label {
			if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
				return false
			}
		}
	}
	return true
}

// recordAudit writes an audit entry; failures are logged and never surfaced.
func recordAudit(ctx context.Context, audit ports.AuditLog, logger zerolog.Logger, entry entities.AuditEntry) {
	if audit == nil {
		return
	}
	if err := audit.LogAction(ctx, entry); err != nil {
		logger.Warn().Err(err).
			Str("action", string(entry.Action)).
			Int64("edit_id", entry.EditID).
			Msg("writing audit entry")
	}
}
