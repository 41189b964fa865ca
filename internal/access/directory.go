package access

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	moduleDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/module"
	"github.com/frahmantamala/marketplace/internal/core/events"
	"github.com/frahmantamala/marketplace/internal/module"
)

const DefaultDirectoryTTL = 5 * time.Minute

// ModuleSource is satisfied by the module repository.
type ModuleSource interface {
	GetActiveByName(ctx context.Context, name string) (*moduleDatamodel.Module, error)
}

type DirectoryOptions struct {
	TTL     time.Duration
	Store   Store
	Metrics *Metrics
	Logger  *slog.Logger
}

// ModuleDirectory resolves module names to active modules through a shared
// store. Only hits are stored, so a module created after a failed lookup is
// visible on the next request. Each name carries a generation that
// Invalidate bumps; a load that started under an older generation returns its
// row to its callers but does not store it.
type ModuleDirectory struct {
	source  ModuleSource
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	metrics *Metrics
	logger  *slog.Logger

	mu   sync.Mutex
	gens map[string]uint64
}

func NewModuleDirectory(source ModuleSource, opts DirectoryOptions) (*ModuleDirectory, error) {
	if opts.TTL <= 0 {
		opts.TTL = DefaultDirectoryTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Store == nil {
		store, err := NewMemoryStore(DefaultStoreSize, nil)
		if err != nil {
			return nil, err
		}
		opts.Store = store
	}
	return &ModuleDirectory{
		source:  source,
		store:   opts.Store,
		ttl:     opts.TTL,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		gens:    make(map[string]uint64),
	}, nil
}

// GetModule returns the active module called name or module.ErrModuleNotFound.
func (d *ModuleDirectory) GetModule(ctx context.Context, name string) (*module.Module, error) {
	m, ok, err := d.store.Get(ctx, name)
	if err != nil {
		// a broken store degrades to reading the source
		d.logger.Warn("module directory store read failed", "module", name, "error", err)
	}
	if ok {
		d.metrics.lookup("hit")
		return m, nil
	}

	ch := d.group.DoChan(name, func() (interface{}, error) {
		return d.load(context.WithoutCancel(ctx), name)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*module.Module), nil
	}
}

func (d *ModuleDirectory) load(ctx context.Context, name string) (*module.Module, error) {
	d.mu.Lock()
	gen := d.gens[name]
	d.mu.Unlock()

	row, err := d.source.GetActiveByName(ctx, name)
	if err != nil {
		d.metrics.lookup("error")
		return nil, fmt.Errorf("load module %q: %w", name, err)
	}
	if row == nil {
		d.metrics.lookup("not_found")
		return nil, module.ErrModuleNotFound
	}

	d.metrics.lookup("miss")
	m := module.FromDataModel(row)
	d.storeIfCurrent(ctx, name, gen, m)
	return m, nil
}

// storeIfCurrent holds mu across the check and the write so an Invalidate
// either sees the entry and deletes it or bumps the generation first.
func (d *ModuleDirectory) storeIfCurrent(ctx context.Context, name string, gen uint64, m *module.Module) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gens[name] != gen {
		d.logger.Debug("module directory skipped stale load", "module", name)
		return
	}
	if err := d.store.Set(ctx, name, m, d.ttl); err != nil {
		d.logger.Warn("module directory store write failed", "module", name, "error", err)
	}
}

// Invalidate evicts names. The next lookup of each reads the source, and a
// load already in flight for one of them is not stored.
func (d *ModuleDirectory) Invalidate(ctx context.Context, names ...string) error {
	d.mu.Lock()
	for _, name := range names {
		d.gens[name]++
		d.group.Forget(name)
	}
	d.mu.Unlock()
	return d.store.Delete(ctx, names...)
}

// HandleModuleChanged is the events.Handler for module.changed.
func (d *ModuleDirectory) HandleModuleChanged(ctx context.Context, event events.Event) error {
	changed, ok := event.(*events.ModuleChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T on %s", event, event.EventHeader().Topic)
	}
	if err := d.Invalidate(ctx, changed.Names...); err != nil {
		return fmt.Errorf("invalidate modules %v: %w", changed.Names, err)
	}
	d.logger.Debug("module directory invalidated", "module_id", changed.ModuleID, "names", changed.Names)
	return nil
}

func (d *ModuleDirectory) SubscribeTo(bus *events.EventBus) {
	bus.Subscribe(events.TopicModuleChanged, d.HandleModuleChanged)
}
