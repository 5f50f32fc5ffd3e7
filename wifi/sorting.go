package wifi

import "sort"

// SortScanResults sorts a slice of ScanResult structs in place.
// The sorting order is:
// 1. Signal strength (strongest first).
// 2. Fallback to SSID alphabetically, then BSSID.
func SortScanResults(results []ScanResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a := results[i]
		b := results[j]

		if a.Strength != b.Strength {
			return a.Strength > b.Strength
		}
		if a.SSID != b.SSID {
			return a.SSID < b.SSID
		}
		return a.BSSID < b.BSSID
	})
}

// StrongestPerSSID collapses results to the strongest access point of each
// named network, sorted with SortScanResults. Hidden (empty SSID) entries are dropped.
func StrongestPerSSID(results []ScanResult) []ScanResult {
	best := make(map[string]ScanResult, len(results))
	for _, r := range results {
		if r.SSID == "" {
			continue
		}
		if existing, ok := best[r.SSID]; ok && existing.Strength >= r.Strength {
			continue
		}
		best[r.SSID] = r
	}

	out := make([]ScanResult, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	SortScanResults(out)
	return out
}
