package core

import (
	"context"
	"errors"

	"shipyard/internal/infra/persistence/memory"
	"shipyard/pkg/domain"
	"shipyard/pkg/sessiondoc"
)

// Clipboard is a best-effort sink for exported documents.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// Service exposes the ship-building operations. Every mutation runs in a
// single store transaction and either commits fully or leaves the session
// untouched.
type Service struct {
	store     PersistentStore
	templates TemplateSource
	factory   *InstanceFactory
	newID     IDGenerator
	decider   Decider
	clipboard Clipboard
	waiver    CapWaiver
	policy    StatsPolicy
	logger    Logger
	metrics   MetricsRecorder
	tracer    Tracer
	audit     AuditRecorder
	clock     Clock
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder sets the operation metrics sink.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithTracer sets the span factory.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithAuditRecorder sets the audit sink.
func WithAuditRecorder(rec AuditRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.audit = rec
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithDecider installs the interactive decision provider.
func WithDecider(d Decider) Option {
	return func(s *Service) { s.decider = d }
}

// WithClipboard installs the export sink.
func WithClipboard(c Clipboard) Option {
	return func(s *Service) { s.clipboard = c }
}

// WithCapWaiver replaces the room-cap waiver predicate.
func WithCapWaiver(w CapWaiver) Option {
	return func(s *Service) {
		if w != nil {
			s.waiver = w
		}
	}
}

// WithStatsPolicy selects how maneuverability is derived.
func WithStatsPolicy(p StatsPolicy) Option {
	return func(s *Service) {
		if p.Valid() {
			s.policy = p
		}
	}
}

// WithIDGenerator overrides instance id generation.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewService constructs a service over store and the template catalog.
func NewService(store PersistentStore, templates TemplateSource, opts ...Option) *Service {
	svc := &Service{
		store:     store,
		templates: templates,
		newID:     NewUUIDv7,
		waiver:    CockpitUpgradeWaiver,
		policy:    PolicySizePenalized,
		logger:    noopLogger{},
		metrics:   noopMetrics{},
		tracer:    noopTracer{},
		audit:     noopAudit{},
		clock:     systemClock(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	svc.factory = NewInstanceFactory(templates, svc.newID)
	return svc
}

// NewInMemoryService creates a service over a fresh in-memory store. A nil
// engine gets the default rule set.
func NewInMemoryService(engine *RulesEngine, templates TemplateSource, opts ...Option) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), templates, opts...)
}

// Store returns the underlying persistent store.
func (s *Service) Store() PersistentStore { return s.store }

// Policy returns the active stats policy.
func (s *Service) Policy() StatsPolicy { return s.policy }

func (s *Service) run(ctx context.Context, op, subject string, fn func(context.Context) (Result, error)) (Result, error) {
	start := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, op)
	res, err := fn(ctx)
	duration := s.clock.Now().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)

	entry := AuditEntry{
		Operation:  op,
		Subject:    subject,
		Status:     AuditStatusSuccess,
		Violations: len(res.Violations),
		Duration:   duration,
		Timestamp:  start,
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
		if isAdvisory(err) {
			s.logger.Info("operation declined", "operation", op, "subject", subject, "duration", duration, "error", err)
		} else {
			s.logger.Error("operation failed", "operation", op, "subject", subject, "duration", duration, "error", err)
		}
	} else {
		s.logger.Debug("operation completed", "operation", op, "subject", subject, "duration", duration)
		for _, v := range res.Violations {
			if v.Severity == SeverityWarn {
				s.logger.Warn("rule warning", "operation", op, "rule", v.Rule, "message", v.Message)
			}
		}
	}
	s.audit.Record(ctx, entry)
	return res, err
}

// isAdvisory reports errors that describe a refused user action rather than
// a fault.
func isAdvisory(err error) bool {
	for _, target := range []error{
		domain.ErrInventoryExhausted,
		domain.ErrCapacityExceeded,
		domain.ErrReplaceCancelled,
		domain.ErrDecisionRequired,
		domain.ErrPromptCancelled,
		domain.ErrInsufficientSurge,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Session returns a copy of the committed session.
func (s *Service) Session(ctx context.Context) (Session, error) {
	var out Session
	err := s.store.View(ctx, func(view TransactionView) error {
		out = view.Session()
		return nil
	})
	return out, err
}

// AddToInventory creates one instance of templateID and stores it unplaced.
func (s *Service) AddToInventory(ctx context.Context, templateID string) (RoomInstance, Result, error) {
	var created RoomInstance
	res, err := s.run(ctx, "add_to_inventory", templateID, func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			inst, err := s.factory.CreateInstance(templateID)
			if err != nil {
				return err
			}
			created, err = tx.AddToInventory(inst)
			return err
		})
	})
	return created, res, err
}

// CoreSetTemplateIDs are the templates added by AddCoreSet.
var CoreSetTemplateIDs = []string{"eng_standard", "sh_standard", "cp_standard", "ls_standard"}

// AddCoreSet adds one instance of each mandatory core template.
func (s *Service) AddCoreSet(ctx context.Context) ([]RoomInstance, Result, error) {
	var created []RoomInstance
	res, err := s.run(ctx, "add_core_set", "", func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			created = created[:0]
			for _, id := range CoreSetTemplateIDs {
				inst, err := s.factory.CreateInstance(id)
				if err != nil {
					return err
				}
				stored, err := tx.AddToInventory(inst)
				if err != nil {
					return err
				}
				created = append(created, stored)
			}
			return nil
		})
	})
	if err != nil {
		return nil, res, err
	}
	return created, res, nil
}

// DiscardFromInventory deletes one unplaced instance of templateID.
func (s *Service) DiscardFromInventory(ctx context.Context, templateID string) (RoomInstance, Result, error) {
	var removed RoomInstance
	res, err := s.run(ctx, "discard_from_inventory", templateID, func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			for _, inst := range tx.Snapshot().ListInventory() {
				if inst.TemplateID != templateID {
					continue
				}
				var err error
				removed, err = tx.RemoveFromInventory(inst.InstanceID)
				return err
			}
			return inventoryExhausted(templateID)
		})
	})
	return removed, res, err
}

// SetInstanceHealth sets an instance's current health, clamped to [0, hpMax].
func (s *Service) SetInstanceHealth(ctx context.Context, instanceID string, hp int) (RoomInstance, Result, error) {
	var updated RoomInstance
	res, err := s.run(ctx, "set_instance_health", instanceID, func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			updated, err = tx.UpdateInstance(instanceID, func(inst *RoomInstance) error {
				inst.SetHealth(hp)
				return nil
			})
			return err
		})
	})
	return updated, res, err
}

// SetPilotSkill stores the clamped pilot skill and returns the stored value.
func (s *Service) SetPilotSkill(ctx context.Context, skill int) (int, Result, error) {
	var stored int
	res, err := s.run(ctx, "set_pilot_skill", "", func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			stored = tx.SetPilotSkill(skill)
			return nil
		})
	})
	return stored, res, err
}

// SetMaxRooms selects the room cap tier.
func (s *Service) SetMaxRooms(ctx context.Context, maxRooms int) (Result, error) {
	return s.run(ctx, "set_max_rooms", "", func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.SetMaxRooms(maxRooms)
		})
	})
}

// ClearAll empties the grid, inventory, placed set and tuning. Grid
// dimensions and scalars are kept.
func (s *Service) ClearAll(ctx context.Context) (Result, error) {
	return s.run(ctx, "clear_all", "", func(ctx context.Context) (Result, error) {
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			tx.ClearLayout()
			return nil
		})
	})
}

// Export encodes the committed session and hands a copy to the clipboard.
// Clipboard failures are logged and otherwise ignored.
func (s *Service) Export(ctx context.Context) ([]byte, error) {
	var doc []byte
	_, err := s.run(ctx, "export", "", func(ctx context.Context) (Result, error) {
		session, err := s.Session(ctx)
		if err != nil {
			return Result{}, err
		}
		doc, err = sessiondoc.Encode(session)
		return Result{}, err
	})
	if err != nil {
		return nil, err
	}
	if s.clipboard != nil {
		if cerr := s.clipboard.WriteText(ctx, string(doc)); cerr != nil {
			s.logger.Warn("clipboard write failed", "error", cerr)
		}
	}
	return doc, nil
}

// Import decodes doc and swaps it in as the whole session. Any failure
// leaves the current session unchanged.
func (s *Service) Import(ctx context.Context, doc []byte) (Result, error) {
	return s.run(ctx, "import", "", func(ctx context.Context) (Result, error) {
		next, err := sessiondoc.Decode(doc, s.templates)
		if err != nil {
			return Result{}, err
		}
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.ReplaceSession(next)
		})
	})
}

// ImportPrompt is the message shown when asking for a document to import.
const ImportPrompt = "Paste ship JSON:"

// ImportFromPrompt asks the decider for a document and imports it. A
// cancelled or empty answer yields ErrPromptCancelled.
func (s *Service) ImportFromPrompt(ctx context.Context) (Result, error) {
	if s.decider == nil {
		return Result{}, domain.ErrDecisionRequired
	}
	text, ok := s.decider.PromptText(ImportPrompt)
	if !ok || text == "" {
		return Result{}, domain.ErrPromptCancelled
	}
	return s.Import(ctx, []byte(text))
}

// Stats derives ship statistics from the committed session.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	session, err := s.Session(ctx)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(session, s.policy, s.waiver), nil
}
