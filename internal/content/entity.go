package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Kind names an admin-editable entity type.
type Kind string

const (
	KindHero    Kind = "hero"
	KindInsight Kind = "insights"
	KindAuthor  Kind = "authors"
	KindOffice  Kind = "offices"
	KindEvent   Kind = "events"
	KindJob     Kind = "jobs"
)

// Kinds lists every editable kind in admin tab order.
var Kinds = []Kind{KindHero, KindInsight, KindAuthor, KindOffice, KindEvent, KindJob}

// ParseKind validates s as a Kind.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Entity is one of *Hero, *Insight, *Author, *Office, *Event or *Job.
type Entity interface {
	Kind() Kind
	EntityID() string
}

func (*Hero) Kind() Kind    { return KindHero }
func (*Insight) Kind() Kind { return KindInsight }
func (*Author) Kind() Kind  { return KindAuthor }
func (*Office) Kind() Kind  { return KindOffice }
func (*Event) Kind() Kind   { return KindEvent }
func (*Job) Kind() Kind     { return KindJob }

func (*Hero) EntityID() string      { return HeroID }
func (e *Insight) EntityID() string { return e.ID }
func (e *Author) EntityID() string  { return e.ID }
func (e *Office) EntityID() string  { return e.ID }
func (e *Event) EntityID() string   { return e.ID }
func (e *Job) EntityID() string     { return e.ID }

// ErrUnknownKind is returned for a kind outside Kinds.
type ErrUnknownKind struct {
	Kind string
}

func (e *ErrUnknownKind) Error() string {
	return fmt.Sprintf("unknown content kind: %q", e.Kind)
}

// ErrNotDeletable is returned when deleting the hero singleton.
type ErrNotDeletable struct {
	Kind Kind
}

func (e *ErrNotDeletable) Error() string {
	return fmt.Sprintf("%s cannot be deleted", e.Kind)
}

// NewEntity returns an empty entity of kind.
func NewEntity(kind Kind) (Entity, error) {
	switch kind {
	case KindHero:
		return &Hero{}, nil
	case KindInsight:
		return &Insight{}, nil
	case KindAuthor:
		return &Author{}, nil
	case KindOffice:
		return &Office{}, nil
	case KindEvent:
		return &Event{}, nil
	case KindJob:
		return &Job{}, nil
	}
	return nil, &ErrUnknownKind{Kind: string(kind)}
}

// DecodeEntity parses raw as kind. Fields that belong to another kind are
// rejected.
func DecodeEntity(kind Kind, raw []byte) (Entity, error) {
	e, err := NewEntity(kind)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(e); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", kind, err)
	}
	return e, nil
}

// SaveEntity stores e through its kind's save operation and returns the id.
func (s *Service) SaveEntity(ctx context.Context, e Entity) (string, error) {
	switch v := e.(type) {
	case *Hero:
		return HeroID, s.SaveHero(ctx, *v)
	case *Insight:
		return s.SaveInsight(ctx, *v)
	case *Author:
		return s.SaveAuthor(ctx, *v)
	case *Office:
		return s.SaveOffice(ctx, *v)
	case *Event:
		return s.SaveEvent(ctx, *v)
	case *Job:
		return s.SaveJob(ctx, *v)
	}
	return "", fmt.Errorf("unsupported entity %T", e)
}

// DeleteEntity removes the entity of kind with id. The hero is permanent.
func (s *Service) DeleteEntity(ctx context.Context, kind Kind, id string) error {
	switch kind {
	case KindHero:
		return &ErrNotDeletable{Kind: kind}
	case KindInsight:
		return s.DeleteInsight(ctx, id)
	case KindAuthor:
		return s.DeleteAuthor(ctx, id)
	case KindOffice:
		return s.DeleteOffice(ctx, id)
	case KindEvent:
		return s.DeleteEvent(ctx, id)
	case KindJob:
		return s.DeleteJob(ctx, id)
	}
	return &ErrUnknownKind{Kind: string(kind)}
}

// ListEntities returns every entity of kind as the admin editor shows it.
func (s *Service) ListEntities(ctx context.Context, kind Kind) ([]Entity, error) {
	switch kind {
	case KindHero:
		h, err := s.GetHero(ctx)
		if err != nil || h == nil {
			return nil, err
		}
		return []Entity{h}, nil
	case KindInsight:
		return listAs[Insight](s.ListInsights(ctx, InsightFilter{}))
	case KindAuthor:
		return listAs[Author](s.ListAuthors(ctx))
	case KindOffice:
		return listAs[Office](s.ListOffices(ctx))
	case KindEvent:
		return listAs[Event](s.ListEvents(ctx))
	case KindJob:
		jobs, err := findAll[Job](ctx, s, allJobsQuery())
		return listAs[Job](jobs, err)
	}
	return nil, &ErrUnknownKind{Kind: string(kind)}
}

func listAs[T any, PT interface {
	*T
	Entity
}](items []T, err error) ([]Entity, error) {
	if err != nil {
		return nil, err
	}
	out := make([]Entity, len(items))
	for i := range items {
		out[i] = PT(&items[i])
	}
	return out, nil
}
