package metadata

// Host carries the metadata of one file while its statements are built.
// Builders read the current value, derive a new one, and write it back.
type Host interface {
	Metadata() FileMetadata
	SetMetadata(FileMetadata)
}

// ControllerHost is the host of a single resource controller. It only
// accepts controller metadata; anything else is ignored. A host must never
// be shared between resources.
type ControllerHost struct {
	state *ControllerMetadata
}

// NewControllerHost creates a host seeded with a copy of initial
func NewControllerHost(initial *ControllerMetadata) *ControllerHost {
	if initial == nil {
		initial = &ControllerMetadata{}
	}
	return &ControllerHost{state: initial.Clone()}
}

// Metadata returns a copy of the current controller metadata
func (h *ControllerHost) Metadata() FileMetadata {
	return h.Snapshot()
}

// SetMetadata replaces the state when m is controller metadata
func (h *ControllerHost) SetMetadata(m FileMetadata) {
	cm, ok := m.(*ControllerMetadata)
	if !ok || cm == nil {
		return
	}
	h.state = cm.Clone()
}

// Snapshot returns a deep copy of the current state
func (h *ControllerHost) Snapshot() *ControllerMetadata {
	return h.state.Clone()
}

// Route returns a copy of the route metadata at index
func (h *ControllerHost) Route(index int) (RouteMetadata, bool) {
	if index < 0 || index >= len(h.state.Routes) {
		return RouteMetadata{}, false
	}
	return h.state.Routes[index].Clone(), true
}

// fileHost holds metadata of a fixed kind
type fileHost struct {
	state FileMetadata
}

// NewFileHost creates a host for a support file. SetMetadata only accepts
// values of the same kind as initial.
func NewFileHost(initial FileMetadata) Host {
	return &fileHost{state: Clone(initial)}
}

func (h *fileHost) Metadata() FileMetadata { return Clone(h.state) }

func (h *fileHost) SetMetadata(m FileMetadata) {
	if m == nil || h.state == nil || m.FileKind() != h.state.FileKind() {
		return
	}
	h.state = Clone(m)
}
