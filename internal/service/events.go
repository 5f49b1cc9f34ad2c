package service

import (
	"context"
	"fmt"

	"mttsite/internal/docstore"
	"mttsite/internal/dto"
	"mttsite/internal/model"
	"mttsite/internal/normalize"
	"mttsite/internal/resilient"
)

func (s *service) eventFromRequest(req dto.EventRequest) model.Event {
	var fees *model.Fees
	if req.Fees != nil {
		fees = &model.Fees{IEEE: req.Fees.IEEE, NonIEEE: req.Fees.NonIEEE}
	}
	normalized := normalize.NormalizeFees(fees)
	return model.Event{
		Title:                      req.Title,
		Date:                       req.Date,
		Time:                       req.Time,
		Location:                   req.Location,
		Type:                       req.Type,
		Image:                      req.Image,
		Description:                req.Description,
		Fees:                       &normalized,
		PostRegistrationMessage:    req.PostRegistrationMessage,
		PostRegistrationLink:       req.PostRegistrationLink,
		PostRegistrationButtonText: req.PostRegistrationButtonText,
	}
}

func (s *service) CreateEvent(ctx context.Context, req dto.EventRequest) (model.Event, resilient.WriteResult, error) {
	if err := validate(ctx, req); err != nil {
		return model.Event{}, resilient.WriteResult{}, err
	}

	event := s.eventFromRequest(req)
	event.CreatedAt = s.timestamp()
	event.UpdatedAt = event.CreatedAt

	doc, err := docstore.FromRecord(event)
	if err != nil {
		return model.Event{}, resilient.WriteResult{}, err
	}
	res, err := s.events.Create(ctx, doc)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create event")
		return model.Event{}, resilient.WriteResult{}, err
	}

	event.ID = res.ID
	s.log.Info().Str("event_id", res.ID).Bool("queued", res.Queued).Msg("event created")
	return normalize.Event(event, s.now()), res, nil
}

func (s *service) UpdateEvent(ctx context.Context, id string, req dto.EventRequest) (resilient.WriteResult, error) {
	if err := validate(ctx, req); err != nil {
		return resilient.WriteResult{}, err
	}

	event := s.eventFromRequest(req)
	event.UpdatedAt = s.timestamp()
	partial, err := docstore.FromRecord(event)
	if err != nil {
		return resilient.WriteResult{}, err
	}
	// createdAt is omitted from the JSON shape when empty; keep the stored value
	delete(partial, "createdAt")

	res, err := s.events.Update(ctx, id, partial)
	if err != nil {
		s.log.Error().Err(err).Str("event_id", id).Msg("failed to update event")
		return resilient.WriteResult{}, notFound(err)
	}
	return res, nil
}

func (s *service) DeleteEvent(ctx context.Context, id string) (resilient.WriteResult, error) {
	res, err := s.events.Delete(ctx, id)
	if err != nil {
		s.log.Error().Err(err).Str("event_id", id).Msg("failed to delete event")
		return resilient.WriteResult{}, notFound(err)
	}
	return res, nil
}

func (s *service) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	doc, err := s.events.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	event, err := decode[model.Event](doc)
	if err != nil {
		return nil, fmt.Errorf("decode event %s: %w", id, err)
	}
	event = normalize.Event(event, s.now())
	return &event, nil
}

// ListEvents orders by date, newest first. Type is matched by the store,
// status after normalisation, search over title, description and location.
func (s *service) ListEvents(ctx context.Context, f dto.EventFilter) ([]model.Event, error) {
	if err := validate(ctx, f); err != nil {
		return nil, err
	}
	docs, err := s.events.List(ctx, resilient.ListQuery{
		Query: docstore.Query{
			Equals:  equalsFilter("type", f.Type),
			OrderBy: "date",
			Desc:    true,
		},
		Search: f.Search,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	events := make([]model.Event, 0, len(docs))
	for _, e := range decodeAll[model.Event](docs, s.log) {
		e = normalize.Event(e, now)
		if f.Status != "" && f.Status != "all" && e.Status != f.Status {
			continue
		}
		events = append(events, e)
	}
	return events, nil
}
