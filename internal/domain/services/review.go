package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ersonp/suggestor/internal/domain/entities"
	"github.com/ersonp/suggestor/internal/domain/ports"
)

type reviewerKey struct{}

// WithReviewer attaches the reviewer's resolved username to ctx so it can be
// recorded in the audit log.
func WithReviewer(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, reviewerKey{}, name)
}

// ReviewerFromContext returns the username set by WithReviewer, if any.
func ReviewerFromContext(ctx context.Context) string {
	name, _ := ctx.Value(reviewerKey{}).(string)
	return name
}

// DiffView is a rendered comparison between an edit and its base revision.
type DiffView struct {
	Edit entities.Edit `json:"edit"`
	Diff string        `json:"diff"`
}

// ReviewService drives the edit lifecycle: it publishes approved edits to the
// wiki and records the resulting state.
type ReviewService struct {
	store  ports.EditStore
	audit  ports.AuditLog
	api    ports.WikiAPI
	gate   *TokenGate
	locks  *EditLocker
	logger zerolog.Logger
}

// NewReviewService creates a new ReviewService.
func NewReviewService(store ports.EditStore, audit ports.AuditLog, api ports.WikiAPI, gate *TokenGate, logger zerolog.Logger) *ReviewService {
	return &ReviewService{
		store:  store,
		audit:  audit,
		api:    api,
		gate:   gate,
		locks:  NewEditLocker(),
		logger: logger.With().Str("component", "review").Logger(),
	}
}

// Pending returns all edits awaiting review, newest first.
func (s *ReviewService) Pending(ctx context.Context) ([]entities.Edit, error) {
	edits, err := s.store.ListByState(ctx, entities.StatePending)
	if err != nil {
		return nil, fmt.Errorf("%w: listing pending edits: %w", ports.ErrPersistence, err)
	}
	return edits, nil
}

// Diff renders the proposed text of an edit against its base revision.
func (s *ReviewService) Diff(ctx context.Context, id int64) (*DiffView, error) {
	edit, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	diff, err := s.api.GetDiff(ctx, *edit)
	if err != nil {
		s.logger.Warn().Err(err).Int64("edit_id", id).Msg("diff request failed")
		return nil, fmt.Errorf("rendering diff for edit %d: %w", id, err)
	}

	return &DiffView{Edit: *edit, Diff: diff}, nil
}

// Review applies a reviewer's action to an edit.
//
// Approval publishes to the wiki before the state is written, so a failed
// publish leaves the edit pending. A successful publish followed by a failed
// write returns an *ports.InconsistentStateError. Acting on an edit that is
// already published or rejected returns ErrAlreadyReviewed and changes
// nothing.
func (s *ReviewService) Review(ctx context.Context, id int64, rawAction, token string) (*entities.Edit, error) {
	if err := s.gate.Require(token); err != nil {
		return nil, err
	}

	edit, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	action, err := entities.ParseAction(rawAction)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrInvalidAction, err)
	}
	target := action.TargetState()

	if edit.State.IsTerminal() {
		return nil, s.rejectTerminal(ctx, edit, action)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	// Another review may have finished while we waited for the lock.
	edit, err = s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if edit.State.IsTerminal() {
		return nil, s.rejectTerminal(ctx, edit, action)
	}

	log := s.logger.With().
		Int64("edit_id", id).
		Str("action", string(action)).
		Str("reviewer", ReviewerFromContext(ctx)).
		Logger()

	if target == entities.StatePublished {
		if err := s.api.MakeEdit(ctx, *edit, token); err != nil {
			log.Warn().Err(err).Msg("publish failed; edit left pending")
			s.record(ctx, entities.AuditPublishFailed, edit.ID, map[string]any{"error": err.Error()})
			return nil, fmt.Errorf("publishing edit %d: %w", id, err)
		}
	}

	if err := s.store.TransitionState(ctx, id, entities.StatePending, target); err != nil {
		return nil, s.writeFailed(ctx, log, edit, target, err)
	}

	edit.State = target
	log.Info().Str("state", string(target)).Msg("edit reviewed")
	s.record(ctx, auditActionFor(target), edit.ID, map[string]any{"page_id": edit.PageID, "wiki": edit.Wiki})

	return edit, nil
}

// load maps store outcomes onto the error taxonomy.
func (s *ReviewService) load(ctx context.Context, id int64) (*entities.Edit, error) {
	edit, err := s.store.Load(ctx, id)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return nil, fmt.Errorf("edit %d: %w", id, ports.ErrNotFound)
	case err != nil:
		s.logger.Error().Err(err).Int64("edit_id", id).Msg("loading edit")
		return nil, fmt.Errorf("%w: loading edit %d: %w", ports.ErrPersistence, id, err)
	}
	return edit, nil
}

func (s *ReviewService) rejectTerminal(ctx context.Context, edit *entities.Edit, action entities.Action) error {
	s.logger.Warn().
		Int64("edit_id", edit.ID).
		Str("state", string(edit.State)).
		Str("action", string(action)).
		Msg("ignoring action on an already reviewed edit")
	s.record(ctx, entities.AuditNoopTerminal, edit.ID, map[string]any{
		"state":  string(edit.State),
		"action": string(action),
	})
	return fmt.Errorf("edit %d is %s: %w", edit.ID, edit.State, ports.ErrAlreadyReviewed)
}

func (s *ReviewService) writeFailed(ctx context.Context, log zerolog.Logger, edit *entities.Edit, target entities.State, err error) error {
	if target == entities.StatePublished {
		log.Error().Err(err).Msg("edit was published but its state was not saved; reconcile manually")
		s.record(ctx, entities.AuditInconsistent, edit.ID, map[string]any{"error": err.Error()})
		return &ports.InconsistentStateError{EditID: edit.ID, Err: err}
	}
	if errors.Is(err, ports.ErrStateConflict) {
		log.Warn().Err(err).Msg("edit changed state during review")
		return fmt.Errorf("edit %d: %w", edit.ID, ports.ErrAlreadyReviewed)
	}
	log.Error().Err(err).Msg("saving review state")
	return fmt.Errorf("%w: saving state of edit %d: %w", ports.ErrPersistence, edit.ID, err)
}

func (s *ReviewService) record(ctx context.Context, action entities.AuditAction, editID int64, details map[string]any) {
	recordAudit(ctx, s.audit, s.logger, entities.AuditEntry{
		Action:   action,
		EditID:   editID,
		Reviewer: ReviewerFromContext(ctx),
		Details:  details,
	})
}

func auditActionFor(state entities.State) entities.AuditAction {
	if state == entities.StatePublished {
		return entities.AuditPublished
	}
	return entities.AuditRejected
}
