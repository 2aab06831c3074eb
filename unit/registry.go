package unit

import "context"

// Registry keeps the units of a decompilation run in registration order,
// addressed by output location. Registration is get-or-create: asking for
// a known location returns the existing unit.
//
// A Registry is not safe for concurrent use; runs are assembled on one
// goroutine.
type Registry struct {
	dctx  *Context
	units []*Unit
	byKey map[string]*Unit
}

// NewRegistry creates an empty registry whose units share dctx.
func NewRegistry(dctx *Context) *Registry {
	return &Registry{
		dctx:  dctx,
		byKey: make(map[string]*Unit),
	}
}

// FolderUnit returns the folder unit for path, creating it when new.
func (r *Registry) FolderUnit(path string, own bool) *Unit {
	return r.unit(Folder, path, "", own)
}

// ArchiveUnit returns the archive unit for name below archivePath,
// creating it when new.
func (r *Registry) ArchiveUnit(kind Kind, archivePath, name string, own bool) *Unit {
	return r.unit(kind, archivePath, name, own)
}

// Unit looks up a unit by output location.
func (r *Registry) Unit(archivePath, name string) (*Unit, bool) {
	u, ok := r.byKey[unitKey(archivePath, name)]
	return u, ok
}

// Units returns all units in registration order.
func (r *Registry) Units() []*Unit {
	out := make([]*Unit, len(r.units))
	copy(out, r.units)

	return out
}

// Len returns the number of registered units.
func (r *Registry) Len() int {
	return len(r.units)
}

// SaveAll saves every own unit in registration order, stopping at the
// first failure. Units of referenced libraries are skipped.
func (r *Registry) SaveAll(ctx context.Context, saver *Saver) error {
	for _, u := range r.units {
		if !u.own {
			continue
		}
		if err := saver.Save(ctx, u); err != nil {
			return err
		}
	}

	return nil
}

func (r *Registry) unit(kind Kind, archivePath, name string, own bool) *Unit {
	key := unitKey(archivePath, name)
	if u, ok := r.byKey[key]; ok {
		return u
	}

	u := &Unit{
		dctx:        r.dctx,
		kind:        kind,
		own:         own,
		archivePath: archivePath,
		name:        name,
	}
	r.byKey[key] = u
	r.units = append(r.units, u)

	return u
}
