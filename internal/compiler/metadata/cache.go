package metadata

// CacheEventInput is a cache dependency before normalisation
type CacheEventInput struct {
	Scope       RouteKind
	Operation   CacheOperation
	Segments    []any
	Description string
}

// RecordCacheEvent appends a normalised event to the controller metadata
// held by host. Hosts carrying other metadata are left untouched; recording
// never fails a build.
func RecordCacheEvent(host Host, in CacheEventInput) {
	if host == nil {
		return
	}
	cm, ok := host.Metadata().(*ControllerMetadata)
	if !ok || cm == nil {
		return
	}

	event := CacheEvent{
		Scope:       in.Scope,
		Operation:   in.Operation,
		Segments:    NormalizeSegments(in.Segments),
		Description: in.Description,
	}

	next := cm.Clone()
	if next.Cache == nil {
		next.Cache = &CacheMetadata{}
	}
	next.Cache.Events = append(next.Cache.Events, event)
	host.SetMetadata(next)
}

// Events returns the cache events recorded on host so far
func Events(host Host) []CacheEvent {
	cm, ok := host.Metadata().(*ControllerMetadata)
	if !ok || cm == nil || cm.Cache == nil {
		return nil
	}
	return cm.Cache.Events
}
