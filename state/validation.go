package state

import (
	"fmt"
	"regexp"
	"slices"
)

var namePattern = regexp.MustCompile("^[0-9a-zA-Z#._@-]+$")

func NameValidator(s string) error {
	if !namePattern.MatchString(s) {
		return fmt.Errorf("%s is not a valid node id, must match pattern %s", s, namePattern.String())
	}
	if len(s) > 100 {
		return fmt.Errorf("len(\"%s\") = %d > 100 is too long", s, len(s))
	}
	return nil
}

func ParamsValidator(p Params) error {
	p = p.WithDefaults()
	if p.IdealReach < 1 {
		return fmt.Errorf("ideal_reach must be positive, got %d", p.IdealReach)
	}
	if p.MinRouteLength < 1 {
		return fmt.Errorf("min_route_length must be positive, got %d", p.MinRouteLength)
	}
	if p.MaxRouteLength-p.MinRouteLength < 1 {
		return fmt.Errorf("max_route_length (%d) must exceed min_route_length (%d)", p.MaxRouteLength, p.MinRouteLength)
	}
	return nil
}

func NodeConfigValidator(cfg *NodeCfg) error {
	if err := NameValidator(string(cfg.Id)); err != nil {
		return err
	}
	if !cfg.Bind.IsValid() {
		return fmt.Errorf("cfg.Bind is invalid")
	}
	if err := ParamsValidator(cfg.Params); err != nil {
		return err
	}
	seen := make([]NodeId, 0, len(cfg.Peers))
	for _, peer := range cfg.Peers {
		if err := NameValidator(string(peer.Id)); err != nil {
			return err
		}
		if peer.Id == cfg.Id {
			return fmt.Errorf("node %s must not list itself as a peer", cfg.Id)
		}
		if slices.Contains(seen, peer.Id) {
			return fmt.Errorf("duplicate peer: %s", peer.Id)
		}
		if !peer.Addr.IsValid() {
			return fmt.Errorf("peer %s has an invalid address", peer.Id)
		}
		seen = append(seen, peer.Id)
	}
	return nil
}
