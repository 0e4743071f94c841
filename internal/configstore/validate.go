package configstore

import (
	"fmt"

	"github.com/fermenator/fermenator/internal/ferrors"
)

// Validate checks spec for structural validity and referential integrity:
// every datasource a BeerSpec names and every beer/relay a ManagerSpec
// names must exist in the corresponding map. If any structural violation
// is found, it returns a KindConfigInvalid ferrors.Error listing all of
// them, and referential violations are not reported; otherwise it returns
// a KindConfigReferentialIntegrity error listing every referential
// violation, or nil.
func Validate(spec *ConfigSpec) error {
	var errs []string

	if spec.Version == "" {
		errs = append(errs, "version must not be empty")
	}

	for name, r := range spec.Relays {
		switch r.Type {
		case "software", "gpio", "":
		default:
			errs = append(errs, fmt.Sprintf("relay %q: unknown type %q", name, r.Type))
		}
		if r.Type == "gpio" && r.Pin == "" {
			errs = append(errs, fmt.Sprintf("relay %q: pin is required for type \"gpio\"", name))
		}
	}

	for name, s := range spec.DataSources {
		if s.Type != "http" {
			errs = append(errs, fmt.Sprintf("datasource %q: unknown type %q", name, s.Type))
		}
		if s.BaseURL == "" {
			errs = append(errs, fmt.Sprintf("datasource %q: base_url must not be empty", name))
		}
	}

	var refErrs []string
	for name, b := range spec.Beers {
		if b.Tolerance <= 0 {
			errs = append(errs, fmt.Sprintf("beer %q: tolerance must be > 0", name))
		}
		switch b.Type {
		case "set_point":
		case "linear_ramp":
			if b.OriginalGravity == b.FinalGravity {
				errs = append(errs, fmt.Sprintf("beer %q: linear_ramp requires original_gravity != final_gravity", name))
			}
		default:
			errs = append(errs, fmt.Sprintf("beer %q: unknown type %q", name, b.Type))
		}
		// spec.md §6: beers[b].datasource must resolve within the spec.
		if _, ok := spec.DataSources[b.DataSource]; !ok {
			refErrs = append(refErrs, fmt.Sprintf("beer %q: datasource %q does not exist", name, b.DataSource))
		}
	}

	// spec.md §5: relays are not shared across managers.
	relayOwner := make(map[string]string, len(spec.Managers))
	claimRelay := func(managerName, relayName string) {
		if relayName == "" {
			return
		}
		if owner, taken := relayOwner[relayName]; taken {
			refErrs = append(refErrs, fmt.Sprintf("relay %q is assigned to both manager %q and manager %q", relayName, owner, managerName))
			return
		}
		relayOwner[relayName] = managerName
	}

	for name, m := range spec.Managers {
		if _, ok := spec.Beers[m.Beer]; !ok {
			refErrs = append(refErrs, fmt.Sprintf("manager %q: beer %q does not exist", name, m.Beer))
		}
		if m.HeatRelay != "" {
			if _, ok := spec.Relays[m.HeatRelay]; !ok {
				refErrs = append(refErrs, fmt.Sprintf("manager %q: heat_relay %q does not exist", name, m.HeatRelay))
			}
		}
		if m.CoolRelay != "" {
			if _, ok := spec.Relays[m.CoolRelay]; !ok {
				refErrs = append(refErrs, fmt.Sprintf("manager %q: cool_relay %q does not exist", name, m.CoolRelay))
			}
		}
		if m.HeatRelay == "" && m.CoolRelay == "" {
			refErrs = append(refErrs, fmt.Sprintf("manager %q: must reference at least one of heat_relay or cool_relay", name))
		}
		claimRelay(name, m.HeatRelay)
		claimRelay(name, m.CoolRelay)
		if m.PollIntervalSec <= 0 {
			errs = append(errs, fmt.Sprintf("manager %q: poll_interval_seconds must be > 0", name))
		}
	}

	if len(errs) > 0 {
		return ferrors.New(ferrors.KindConfigInvalid, joinErrs(errs))
	}
	if len(refErrs) > 0 {
		return ferrors.New(ferrors.KindConfigReferentialIntegrity, joinErrs(refErrs))
	}
	return nil
}

func joinErrs(errs []string) string {
	out := errs[0]
	for _, e := range errs[1:] {
		out += "; " + e
	}
	return out
}
