package wifi

import "strings"

// ClassifySecurity maps an advertised capability string to a SecurityType.
//
// WPA and RSN markers win over WEP, anything else is open. It never returns
// SecurityUnknown.
func ClassifySecurity(capabilities string) SecurityType {
	s := strings.ToUpper(capabilities)
	if strings.Contains(s, "WPA") || strings.Contains(s, "RSN") {
		return SecurityWPA
	}
	if strings.Contains(s, "WEP") {
		return SecurityWEP
	}
	return SecurityOpen
}
