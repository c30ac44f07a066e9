package service

import (
	"context"

	"git.home.luguber.info/inful/brandintel/internal/livesync"
	"git.home.luguber.info/inful/brandintel/internal/model"
	"git.home.luguber.info/inful/brandintel/internal/store"
)

// publishingUnitStore decorates a UnitStore so every persisted mutation
// emits a change event. The runner writes through it, which is how live-sync
// consumers see per-transition updates without the runner knowing about the
// feed.
type publishingUnitStore struct {
	inner   store.UnitStore
	service *Service
}

func (p *publishingUnitStore) SeedUnits(ctx context.Context, subjectID string, unitTypes []string) error {
	if err := p.inner.SeedUnits(ctx, subjectID, unitTypes); err != nil {
		return err
	}
	p.service.publish(livesync.Event{SubjectID: subjectID, Op: "insert"})
	return nil
}

func (p *publishingUnitStore) Update(ctx context.Context, u *model.ExtractionUnit) error {
	if err := p.inner.Update(ctx, u); err != nil {
		return err
	}
	p.service.publish(livesync.Event{SubjectID: u.SubjectID, UnitType: u.UnitType, Op: "update"})
	return nil
}

func (p *publishingUnitStore) GetUnit(ctx context.Context, subjectID, unitType string) (*model.ExtractionUnit, error) {
	return p.inner.GetUnit(ctx, subjectID, unitType)
}

func (p *publishingUnitStore) ListBySubject(ctx context.Context, subjectID string) ([]model.ExtractionUnit, error) {
	return p.inner.ListBySubject(ctx, subjectID)
}
