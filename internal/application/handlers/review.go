package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/suggestor/internal/domain/entities"
	"github.com/ersonp/suggestor/internal/domain/ports"
	"github.com/ersonp/suggestor/internal/domain/services"
)

// ReviewHandler is the application surface over submission and review.
type ReviewHandler struct {
	submissions *services.SubmissionService
	reviews     *services.ReviewService
	gate        *services.TokenGate
	audit       ports.AuditLog
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(
	submissions *services.SubmissionService,
	reviews *services.ReviewService,
	gate *services.TokenGate,
	audit ports.AuditLog,
) *ReviewHandler {
	return &ReviewHandler{
		submissions: submissions,
		reviews:     reviews,
		gate:        gate,
		audit:       audit,
	}
}

// ReviewResult contains the outcome of a review action.
type ReviewResult struct {
	ID        int64          `json:"id"`
	State     entities.State `json:"state"`
	Published bool           `json:"published"`
}

// Submit stores a new pending edit and returns its ID.
func (h *ReviewHandler) Submit(ctx context.Context, draft entities.Draft) (int64, error) {
	edit, err := h.submissions.Submit(ctx, draft)
	if err != nil {
		return 0, err
	}
	return edit.ID, nil
}

// GetPending returns every edit awaiting review, newest first.
func (h *ReviewHandler) GetPending(ctx context.Context) ([]entities.Edit, error) {
	return h.reviews.Pending(ctx)
}

// GetDiffView renders an edit against its base revision.
func (h *ReviewHandler) GetDiffView(ctx context.Context, id int64) (*services.DiffView, error) {
	return h.reviews.Diff(ctx, id)
}

// Review approves or rejects an edit on behalf of the token's owner.
func (h *ReviewHandler) Review(ctx context.Context, id int64, action, token string) (*ReviewResult, error) {
	edit, err := h.reviews.Review(ctx, id, action, token)
	if err != nil {
		return nil, err
	}
	return &ReviewResult{
		ID:        edit.ID,
		State:     edit.State,
		Published: edit.State == entities.StatePublished,
	}, nil
}

// WhoAmI returns the token owner's username, or "" for a missing token, an
// anonymous session or a failed lookup.
func (h *ReviewHandler) WhoAmI(ctx context.Context, token string) string {
	identity, err := h.gate.Identify(ctx, token)
	if err != nil || !identity.LoggedIn() {
		return ""
	}
	return identity.Name
}

// Audit returns the audit trail of an edit, newest first.
func (h *ReviewHandler) Audit(ctx context.Context, id int64) ([]entities.AuditEntry, error) {
	entries, err := h.audit.FindAuditLog(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: reading audit log for edit %d: %w", ports.ErrPersistence, id, err)
	}
	return entries, nil
}

// AuditByAction returns the most recent audit entries of one kind.
func (h *ReviewHandler) AuditByAction(ctx context.Context, action entities.AuditAction, limit int) ([]entities.AuditEntry, error) {
	entries, err := h.audit.FindAuditLogByAction(ctx, action, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s audit entries: %w", ports.ErrPersistence, action, err)
	}
	return entries, nil
}
