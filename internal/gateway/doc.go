// Package gateway holds the gateway's live runtime state.
//
// Everything a request needs is bundled into an immutable Snapshot: the
// effective configuration, the token validator built from its JwtConfig
// section, the routing handler and the documentation service. The
// Gateway publishes the current snapshot through an atomic pointer;
// request handlers load it once and use it for the whole request.
//
// # Configuration Reload
//
// Reload builds a complete new snapshot and swaps it in. If building
// fails the previous snapshot stays active:
//
//	if err := gw.Reload(newConfig); err != nil {
//	    logger.Error("reload failed", observability.Error(err))
//	}
package gateway
