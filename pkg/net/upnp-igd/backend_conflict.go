//go:build igd_coop && igd_pool

package upnpigd

// The igd_coop and igd_pool build tags select different default transports;
// only one may be set.
var _ = igd_coop_and_igd_pool_build_tags_are_mutually_exclusive
