package story

import "context"

type chainKey struct{}

// NewContext returns a copy of ctx carrying chain.
func NewContext(ctx context.Context, chain *Chain) context.Context {
	return context.WithValue(ctx, chainKey{}, chain)
}

// FromContext returns the chain stored by NewContext.
func FromContext(ctx context.Context) (*Chain, bool) {
	if ctx == nil {
		return nil, false
	}
	chain, ok := ctx.Value(chainKey{}).(*Chain)
	return chain, ok && chain != nil
}
