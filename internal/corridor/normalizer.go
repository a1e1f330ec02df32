package corridor

import "time"

// #region normalize
// Normalize converts a raw measurement into a bounded risk coordinate.
// For higher-is-worse parameters r = clip((raw - min) / (max - min), 0, 1);
// for lower-is-worse the ratio is inverted before clipping. No caching, no
// side effects beyond constructing the value.
func Normalize(p Parameter, raw float64, ts time.Time) (RiskCoordinate, error) {
	denom := p.NormMax - p.NormMin
	if denom <= 0 {
		return RiskCoordinate{}, domainErr(p.Name, "degenerate normalization bounds")
	}

	var r float64
	switch p.Direction {
	case HigherWorse:
		r = (raw - p.NormMin) / denom
	case LowerWorse:
		r = (p.NormMax - raw) / denom
	default:
		return RiskCoordinate{}, domainErr(p.Name, "unknown direction")
	}

	return RiskCoordinate{
		Parameter: p.Name,
		Raw:       raw,
		R:         clip01(r),
		Weight:    p.Weight,
		Channel:   p.Channel,
		Timestamp: ts,
	}, nil
}

// NormalizeAll maps a set of raw measurements through the registry. The
// measurement set and the registry must cover each other exactly: an unknown
// name fails the whole call, and so does a registered parameter with no
// measurement. The residual is only comparable across updates when every
// update spans the full corridor.
func NormalizeAll(reg *Registry, raws map[string]float64, ts time.Time) ([]RiskCoordinate, error) {
	coords := make([]RiskCoordinate, 0, len(raws))
	for _, name := range reg.Names() {
		raw, ok := raws[name]
		if !ok {
			return nil, domainErr(name, "no raw measurement supplied")
		}
		p, err := reg.Get(name)
		if err != nil {
			return nil, err
		}
		c, err := Normalize(p, raw, ts)
		if err != nil {
			return nil, err
		}
		coords = append(coords, c)
	}
	for name := range raws {
		if _, err := reg.Get(name); err != nil {
			return nil, err
		}
	}
	return coords, nil
}

// #endregion normalize

// #region helpers
func clip01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// #endregion helpers
