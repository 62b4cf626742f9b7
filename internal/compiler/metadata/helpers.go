package metadata

// AppendHelperSignatures adds helper method signatures to the controller
// metadata, keeping first-seen order and dropping duplicates.
func AppendHelperSignatures(host Host, signatures ...string) {
	if host == nil || len(signatures) == 0 {
		return
	}
	cm, ok := host.Metadata().(*ControllerMetadata)
	if !ok || cm == nil {
		return
	}

	next := cm.Clone()
	if next.Helpers == nil {
		next.Helpers = &HelperMetadata{Methods: []string{}}
	}
	seen := make(map[string]struct{}, len(next.Helpers.Methods))
	for _, m := range next.Helpers.Methods {
		seen[m] = struct{}{}
	}
	for _, sig := range signatures {
		if _, dup := seen[sig]; dup {
			continue
		}
		seen[sig] = struct{}{}
		next.Helpers.Methods = append(next.Helpers.Methods, sig)
	}
	host.SetMetadata(next)
}

// AppendRouteTags merges tags into the route at index
func AppendRouteTags(host Host, index int, tags map[string]string) {
	if host == nil || len(tags) == 0 {
		return
	}
	cm, ok := host.Metadata().(*ControllerMetadata)
	if !ok || cm == nil || index < 0 || index >= len(cm.Routes) {
		return
	}

	next := cm.Clone()
	route := &next.Routes[index]
	if route.Tags == nil {
		route.Tags = make(map[string]string, len(tags))
	}
	for k, v := range tags {
		route.Tags[k] = v
	}
	host.SetMetadata(next)
}
