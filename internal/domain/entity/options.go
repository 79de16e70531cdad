package entity

// RegistryOption applies a configuration option to the Registry.
type RegistryOption func(*Registry)

// WithAliasPath points the registry at a YAML alias table that is
// merged over the generated name variations.
func WithAliasPath(path string) RegistryOption {
	return func(r *Registry) {
		r.aliasPath = path
	}
}

// ResolverOption applies a configuration option to the resolver.
type ResolverOption func(*registryResolver)

// WithSimilarityFloor sets the minimum normalized similarity a fuzzy
// match must reach. Values outside (0, 1] keep the default.
func WithSimilarityFloor(floor float64) ResolverOption {
	return func(r *registryResolver) {
		if floor > 0 && floor <= 1 {
			r.floor = floor
		}
	}
}
