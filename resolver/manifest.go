package resolver

import (
	"context"

	"github.com/crmarques/cement/entity"
	"github.com/crmarques/cement/faults"
	"github.com/crmarques/cement/server"
)

// SubscriptionManifest returns the upstream consumer of the manifest
// currently imported into organization, or nil when none is.
func (r *Resolver) SubscriptionManifest(ctx context.Context, organization entity.Ref) (map[string]any, error) {
	reader, ok := r.server.(server.RawReader)
	if !ok {
		return nil, faults.NewTypedError(faults.InternalError, "entity server cannot read raw records", nil)
	}
	schema, err := r.schemas.Schema(entity.KindOrganization)
	if err != nil {
		return nil, err
	}

	record, err := reader.ReadRaw(ctx, schema, organization.ID)
	if err != nil {
		return nil, err
	}

	details, ok := record["owner_details"].(map[string]any)
	if !ok {
		return nil, nil
	}
	consumer, ok := details["upstreamConsumer"].(map[string]any)
	if !ok {
		return nil, nil
	}
	return consumer, nil
}
