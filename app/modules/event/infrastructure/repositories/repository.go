package eventdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Black-And-White-Club/ctf-engine/app/shared/apperrors"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

var (
	// ErrEventNotFound is returned when an event id does not exist.
	ErrEventNotFound = fmt.Errorf("event %w", apperrors.ErrNotFound)
	// ErrMissingPayload is returned when an event carries no payload for its
	// type.
	ErrMissingPayload = fmt.Errorf("event payload missing: %w", apperrors.ErrValidation)
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new event repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) Insert(ctx context.Context, db bun.IDB, ev *Event) error {
	db = r.resolveDB(db)
	if ev.Payload() == nil {
		return ErrMissingPayload
	}

	row := ev.row()
	if _, err := db.NewInsert().Model(row).ExcludeColumn("id").Returning("id, created_on").Exec(ctx); err != nil {
		return fmt.Errorf("eventdb.Insert: header: %w", err)
	}
	ev.ID, ev.CreatedOn = row.ID, row.CreatedOn

	var err error
	switch ev.Type {
	case sharedtypes.EventExploitScript:
		ev.ExploitScript.EventID = ev.ID
		err = insertPayload(ctx, db, ev.ExploitScript)
	case sharedtypes.EventSlaScript:
		ev.SlaScript.EventID = ev.ID
		err = insertPayload(ctx, db, ev.SlaScript)
	case sharedtypes.EventSetFlag:
		ev.SetFlag.EventID = ev.ID
		err = insertPayload(ctx, db, ev.SetFlag)
	case sharedtypes.EventFlagStolen:
		ev.FlagStolen.EventID = ev.ID
		err = insertPayload(ctx, db, ev.FlagStolen)
	case sharedtypes.EventKohScoreFetch:
		ev.KohScoreFetch.EventID = ev.ID
		err = insertPayload(ctx, db, ev.KohScoreFetch)
	case sharedtypes.EventKohRanking:
		ev.KohRanking.EventID = ev.ID
		if err = insertPayload(ctx, db, ev.KohRanking); err == nil && len(ev.KohRanking.Results) > 0 {
			for i := range ev.KohRanking.Results {
				ev.KohRanking.Results[i].EventID = ev.ID
			}
			_, err = db.NewInsert().Model(&ev.KohRanking.Results).Returning("id").Exec(ctx)
		}
	case sharedtypes.EventPcapCreated:
		ev.PcapCreated.EventID = ev.ID
		err = insertPayload(ctx, db, ev.PcapCreated)
	case sharedtypes.EventPcapReleased:
		ev.PcapReleased.EventID = ev.ID
		err = insertPayload(ctx, db, ev.PcapReleased)
	case sharedtypes.EventStealth:
		ev.Stealth.EventID = ev.ID
		ev.Stealth.TickID = ev.TickID
		err = insertPayload(ctx, db, ev.Stealth)
	default:
		return fmt.Errorf("unknown event type %q: %w", ev.Type, apperrors.ErrValidation)
	}
	if err != nil {
		return fmt.Errorf("eventdb.Insert: %s payload: %w", ev.Type, err)
	}
	return nil
}

func insertPayload(ctx context.Context, db bun.IDB, model any) error {
	_, err := db.NewInsert().Model(model).Exec(ctx)
	return err
}

func (r *Impl) Get(ctx context.Context, db bun.IDB, id sharedtypes.EventID) (*Event, error) {
	db = r.resolveDB(db)
	row := new(EventRow)
	if err := db.NewSelect().Model(row).Where("ev.id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("eventdb.Get: %w", err)
	}
	events, err := hydrate(ctx, db, []EventRow{*row})
	if err != nil {
		return nil, fmt.Errorf("eventdb.Get: %w", err)
	}
	return &events[0], nil
}

func (r *Impl) List(ctx context.Context, db bun.IDB) ([]Event, error) {
	return r.listWhere(ctx, r.resolveDB(db), "eventdb.List", nil)
}

func (r *Impl) ListForTick(ctx context.Context, db bun.IDB, tick sharedtypes.TickID) ([]Event, error) {
	return r.listWhere(ctx, r.resolveDB(db), "eventdb.ListForTick", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("ev.tick_id = ?", tick)
	})
}

func (r *Impl) PcapsReleasedForTeam(ctx context.Context, db bun.IDB, team sharedtypes.TeamID) ([]Event, error) {
	return r.listWhere(ctx, r.resolveDB(db), "eventdb.PcapsReleasedForTeam", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Join("JOIN pcap_released_events AS pre ON pre.event_id = ev.id").
			Where("pre.team_id = ?", team)
	})
}

func (r *Impl) listWhere(ctx context.Context, db bun.IDB, op string, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]Event, error) {
	var rows []EventRow
	q := db.NewSelect().Model(&rows).Order("ev.id ASC")
	if filter != nil {
		q = filter(q)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	events, err := hydrate(ctx, db, rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return events, nil
}

// hydrate loads the payload of every header, one query per payload table
// present in rows.
func hydrate(ctx context.Context, db bun.IDB, rows []EventRow) ([]Event, error) {
	events := make([]Event, len(rows))
	byType := map[sharedtypes.EventType][]sharedtypes.EventID{}
	index := make(map[sharedtypes.EventID]int, len(rows))
	for i, row := range rows {
		events[i] = fromRow(row)
		byType[row.Type] = append(byType[row.Type], row.ID)
		index[row.ID] = i
	}

	for typ, ids := range byType {
		switch typ {
		case sharedtypes.EventExploitScript:
			if err := loadPayloads(ctx, db, ids, index, events, func(e *Event, p *ExploitScript) { e.ExploitScript = p }); err != nil {
				return nil, err
			}
		case sharedtypes.EventSlaScript:
			if err := loadPayloads(ctx, db, ids, index, events, func(e *Event, p *SlaScript) { e.SlaScript = p }); err != nil {
				return nil, err
			}
		case sharedtypes.EventSetFlag:
			if err := loadPayloads(ctx, db, ids, index, events, func(e *Event, p *SetFlag) { e.SetFlag = p }); err != nil {
				return nil, err
			}
		case sharedtypes.EventFlagStolen:
			if err := loadPayloads(ctx, db, ids, index, events, func(e *Event, p *FlagStolen) { e.FlagStolen = p }); err != nil {
				return nil, err
			}
		case sharedtypes.EventKohScoreFetch:
			if err := loadPayloads(ctx, db, ids, index, events, func(e *Event, p *KohScoreFetch) { e.KohScoreFetch = p }); err != nil {
				return nil, err
			}
		case sharedtypes.EventKohRanking:
			if err := loadPayloads(ctx, db, ids, index, events, func(e *Event, p *KohRanking) { e.KohRanking = p }); err != nil {
				return nil, err
			}
			if err := loadRankResults(ctx, db, ids, index, events); err != nil {
				return nil, err
			}
		case sharedtypes.EventPcapCreated:
			if err := loadPayloads(ctx, db, ids, index, events, func(e *Event, p *PcapCreated) { e.PcapCreated = p }); err != nil {
				return nil, err
			}
		case sharedtypes.EventPcapReleased:
			if err := loadPayloads(ctx, db, ids, index, events, func(e *Event, p *PcapReleased) { e.PcapReleased = p }); err != nil {
				return nil, err
			}
		case sharedtypes.EventStealth:
			if err := loadPayloads(ctx, db, ids, index, events, func(e *Event, p *Stealth) { e.Stealth = p }); err != nil {
				return nil, err
			}
		}
	}
	return events, nil
}

// eventKeyed is satisfied by every payload model through its EventID field.
type eventKeyed interface {
	ExploitScript | SlaScript | SetFlag | FlagStolen | KohScoreFetch | KohRanking | PcapCreated | PcapReleased | Stealth
}

func loadPayloads[T eventKeyed](ctx context.Context, db bun.IDB, ids []sharedtypes.EventID, index map[sharedtypes.EventID]int, events []Event, set func(*Event, *T)) error {
	var payloads []T
	if err := db.NewSelect().Model(&payloads).Where("?TableAlias.event_id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		return fmt.Errorf("load payloads: %w", err)
	}
	for i := range payloads {
		p := &payloads[i]
		if j, ok := index[payloadEventID(p)]; ok {
			set(&events[j], p)
		}
	}
	return nil
}

func payloadEventID(p any) sharedtypes.EventID {
	switch v := p.(type) {
	case *ExploitScript:
		return v.EventID
	case *SlaScript:
		return v.EventID
	case *SetFlag:
		return v.EventID
	case *FlagStolen:
		return v.EventID
	case *KohScoreFetch:
		return v.EventID
	case *KohRanking:
		return v.EventID
	case *PcapCreated:
		return v.EventID
	case *PcapReleased:
		return v.EventID
	case *Stealth:
		return v.EventID
	}
	return 0
}

func loadRankResults(ctx context.Context, db bun.IDB, ids []sharedtypes.EventID, index map[sharedtypes.EventID]int, events []Event) error {
	var results []KohRankResult
	err := db.NewSelect().Model(&results).
		Where("krr.event_id IN (?)", bun.In(ids)).
		Order("krr.id ASC").
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("load rank results: %w", err)
	}
	for _, res := range results {
		if i, ok := index[res.EventID]; ok && events[i].KohRanking != nil {
			events[i].KohRanking.Results = append(events[i].KohRanking.Results, res)
		}
	}
	return nil
}

func (r *Impl) DeleteHeader(ctx context.Context, db bun.IDB, id sharedtypes.EventID) error {
	db = r.resolveDB(db)
	res, err := db.NewDelete().Model((*EventRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("eventdb.DeleteHeader: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *Impl) FlagStolenForTick(ctx context.Context, db bun.IDB, tick sharedtypes.TickID) ([]FlagStolen, error) {
	db = r.resolveDB(db)
	var rows []FlagStolen
	err := db.NewSelect().Model(&rows).
		Join("JOIN events AS ev ON ev.id = fse.event_id").
		Where("ev.tick_id = ?", tick).
		Order("fse.event_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("eventdb.FlagStolenForTick: %w", err)
	}
	return rows, nil
}

func (r *Impl) CountFlagStolenForService(ctx context.Context, db bun.IDB, service sharedtypes.ServiceID) (int, error) {
	db = r.resolveDB(db)
	n, err := db.NewSelect().Model((*FlagStolen)(nil)).Where("fse.service_id = ?", service).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("eventdb.CountFlagStolenForService: %w", err)
	}
	return n, nil
}

func (r *Impl) StealthForTick(ctx context.Context, db bun.IDB, tick sharedtypes.TickID) ([]Stealth, error) {
	db = r.resolveDB(db)
	var rows []Stealth
	err := db.NewSelect().Model(&rows).Where("ste.tick_id = ?", tick).Order("ste.event_id ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("eventdb.StealthForTick: %w", err)
	}
	return rows, nil
}

func (r *Impl) KohRankingsForTick(ctx context.Context, db bun.IDB, tick sharedtypes.TickID) ([]KohRanking, error) {
	events, err := r.listWhere(ctx, r.resolveDB(db), "eventdb.KohRankingsForTick", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("ev.tick_id = ?", tick).Where("ev.event_type = ?", sharedtypes.EventKohRanking)
	})
	if err != nil {
		return nil, err
	}
	rankings := make([]KohRanking, 0, len(events))
	for _, ev := range events {
		if ev.KohRanking != nil {
			rankings = append(rankings, *ev.KohRanking)
		}
	}
	return rankings, nil
}

func (r *Impl) KohRankingsForService(ctx context.Context, db bun.IDB, service sharedtypes.ServiceID) ([]Event, error) {
	db = r.resolveDB(db)
	var rows []EventRow
	err := db.NewSelect().Model(&rows).
		Join("JOIN koh_ranking_events AS kre ON kre.event_id = ev.id").
		Where("kre.service_id = ?", service).
		Order("ev.tick_id ASC", "ev.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("eventdb.KohRankingsForService: %w", err)
	}
	events, err := hydrate(ctx, db, rows)
	if err != nil {
		return nil, fmt.Errorf("eventdb.KohRankingsForService: %w", err)
	}
	return events, nil
}

func (r *Impl) UpdateRankResults(ctx context.Context, db bun.IDB, rows []KohRankResult) error {
	db = r.resolveDB(db)
	for i := range rows {
		_, err := db.NewUpdate().Model(&rows[i]).
			Column("rank", "score", "data").
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("eventdb.UpdateRankResults: %w", err)
		}
	}
	return nil
}
