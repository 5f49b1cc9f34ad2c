package service

import (
	"context"
	"fmt"
	"strings"

	"mttsite/internal/docstore"
	"mttsite/internal/dto"
	"mttsite/internal/model"
	"mttsite/internal/normalize"
	"mttsite/internal/resilient"
)

// CreateRegistration prices the registration from the event fees. Free
// registrations are approved immediately; paid ones wait for payment review.
func (s *service) CreateRegistration(ctx context.Context, eventID string, req dto.RegistrationRequest) (model.Registration, resilient.WriteResult, error) {
	if err := validate(ctx, req); err != nil {
		return model.Registration{}, resilient.WriteResult{}, err
	}

	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return model.Registration{}, resilient.WriteResult{}, err
	}
	if event == nil {
		return model.Registration{}, resilient.WriteResult{}, fmt.Errorf("%w: event %s", ErrNotFound, eventID)
	}
	if event.Status == model.EventPast {
		return model.Registration{}, resilient.WriteResult{}, ErrRegistrationClosed
	}

	reg := model.Registration{
		EventID:           eventID,
		EventTitle:        event.Title,
		Name:              strings.TrimSpace(req.Name),
		Email:             strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:             req.Phone,
		College:           req.College,
		Department:        req.Department,
		Year:              req.Year,
		MembershipType:    req.MembershipType,
		MembershipID:      req.MembershipID,
		RegistrationDate:  s.timestamp(),
		Amount:            normalize.NormalizeFees(event.Fees).For(req.MembershipType),
		PaymentScreenshot: req.PaymentScreenshot,
	}
	if reg.Amount == 0 {
		reg.Status = model.RegistrationApproved
		reg.PaymentStatus = model.PaymentCompleted
	} else {
		reg.Status = model.RegistrationPending
		reg.PaymentStatus = model.PaymentPending
	}

	doc, err := docstore.FromRecord(reg)
	if err != nil {
		return model.Registration{}, resilient.WriteResult{}, err
	}
	res, err := s.registrations.Create(ctx, doc)
	if err != nil {
		s.log.Error().Err(err).Str("event_id", eventID).Msg("failed to create registration")
		return model.Registration{}, resilient.WriteResult{}, err
	}
	reg.ID = res.ID

	s.log.Info().Str("registration_id", reg.ID).Str("event_id", eventID).Bool("queued", res.Queued).Msg("registration created")
	s.notify(ctx, reg)
	return reg, res, nil
}

func (s *service) UpdateRegistration(ctx context.Context, id string, upd dto.RegistrationUpdate) (resilient.WriteResult, error) {
	if err := validate(ctx, upd); err != nil {
		return resilient.WriteResult{}, err
	}
	partial := docstore.Document{}
	if upd.Status != nil {
		partial["status"] = *upd.Status
	}
	if upd.PaymentStatus != nil {
		partial["paymentStatus"] = *upd.PaymentStatus
	}
	if upd.PaymentScreenshot != nil {
		partial["paymentScreenshot"] = *upd.PaymentScreenshot
	}
	if len(partial) == 0 {
		return resilient.WriteResult{}, fmt.Errorf("%w: nothing to update", ErrValidation)
	}

	res, err := s.registrations.Update(ctx, id, partial)
	if err != nil {
		s.log.Error().Err(err).Str("registration_id", id).Msg("failed to update registration")
		return resilient.WriteResult{}, notFound(err)
	}

	if upd.Status != nil {
		if reg, err := s.GetRegistration(ctx, id); err == nil && reg != nil {
			s.notify(ctx, *reg)
		}
	}
	return res, nil
}

func (s *service) DeleteRegistration(ctx context.Context, id string) (resilient.WriteResult, error) {
	res, err := s.registrations.Delete(ctx, id)
	if err != nil {
		s.log.Error().Err(err).Str("registration_id", id).Msg("failed to delete registration")
		return resilient.WriteResult{}, notFound(err)
	}
	return res, nil
}

func (s *service) GetRegistration(ctx context.Context, id string) (*model.Registration, error) {
	doc, err := s.registrations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	reg, err := decode[model.Registration](doc)
	if err != nil {
		return nil, fmt.Errorf("decode registration %s: %w", id, err)
	}
	reg = normalize.Registration(reg)
	return &reg, nil
}

// ListRegistrations orders by registration date, newest first, and searches
// name, email and college.
func (s *service) ListRegistrations(ctx context.Context, f dto.RegistrationFilter) ([]model.Registration, error) {
	if err := validate(ctx, f); err != nil {
		return nil, err
	}
	docs, err := s.registrations.List(ctx, resilient.ListQuery{
		Query: docstore.Query{
			Equals:  equalsFilter("eventId", f.EventID, "status", f.Status),
			OrderBy: "registrationDate",
			Desc:    true,
		},
		Search: f.Search,
	})
	if err != nil {
		return nil, err
	}
	regs := decodeAll[model.Registration](docs, s.log)
	for i := range regs {
		regs[i] = normalize.Registration(regs[i])
	}
	return regs, nil
}

func (s *service) notify(ctx context.Context, reg model.Registration) {
	if s.notifier == nil {
		return
	}
	msg := dto.RegistrationMessage{
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		EventTitle:     reg.EventTitle,
		Name:           reg.Name,
		Email:          reg.Email,
		Status:         reg.Status,
		PaymentStatus:  reg.PaymentStatus,
		Amount:         reg.Amount,
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.log.Warn().Err(err).Str("registration_id", reg.ID).Msg("failed to publish registration notification")
	}
}
