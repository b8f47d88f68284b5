// Package registry holds the static lookup tables for known executing
// brokers and known client accounts. The tables are read-only at run time and
// safe to share across concurrent normalization tasks.
package registry

import (
	"sort"
	"strings"
)

// Broker identifies one executing-broker format.
type Broker struct {
	ID           string   // registry key, also the normalizer selector
	Name         string   // display name
	Code         int      // NSE trading-member code
	FilePatterns []string // case-insensitive filename substrings
}

// brokers is the closed set of supported executing brokers. NUVAMA shares
// Edelweiss's member code and file format (the firm was renamed); both keys
// resolve to the same normalizer.
var brokers = []Broker{
	{ID: "ICICI", Name: "ICICI Securities Limited", Code: 7730, FilePatterns: []string{"icici"}},
	{ID: "KOTAK", Name: "Kotak Securities", Code: 8081, FilePatterns: []string{"kotak"}},
	{ID: "IIFL", Name: "IIFL Securities", Code: 10975, FilePatterns: []string{"iifl"}},
	{ID: "AXIS", Name: "Axis Securities", Code: 13872, FilePatterns: []string{"axis"}},
	{ID: "EQUIRUS", Name: "Equirus Securities", Code: 13017, FilePatterns: []string{"equirus"}},
	{ID: "EDELWEISS", Name: "Edelweiss Securities", Code: 11933, FilePatterns: []string{"edelweiss"}},
	{ID: "NUVAMA", Name: "Nuvama Securities", Code: 11933, FilePatterns: []string{"nuvama"}},
	{ID: "MORGAN", Name: "Morgan Stanley", Code: 10542, FilePatterns: []string{"morgan", "ms"}},
	{ID: "ANTIQUE", Name: "Antique Stock Broking", Code: 12987, FilePatterns: []string{"antique"}},
}

// nameSubstrings maps substrings of broker-name cell values to member codes,
// used by the classifier's broker-name vote.
var nameSubstrings = []struct {
	Substr string
	Code   int
}{
	{"EQUIRUS", 13017},
	{"ANTIQUE", 12987},
	{"KOTAK", 8081},
	{"ICICI", 7730},
	{"IIFL", 10975},
	{"AXIS", 13872},
	{"EDELWEISS", 11933},
	{"NUVAMA", 11933},
	{"MORGAN", 10542},
}

// Brokers returns the registered brokers in a stable order.
func Brokers() []Broker {
	out := make([]Broker, len(brokers))
	copy(out, brokers)
	return out
}

// BrokerByID looks a broker up by registry key.
func BrokerByID(id string) (Broker, bool) {
	for _, b := range brokers {
		if b.ID == strings.ToUpper(strings.TrimSpace(id)) {
			return b, true
		}
	}
	return Broker{}, false
}

// BrokerByCode looks a broker up by member code. Codes arrive sign-mangled
// and zero-padded in source files; callers normalize before lookup.
func BrokerByCode(code int) (Broker, bool) {
	for _, b := range brokers {
		if b.Code == code {
			return b, true
		}
	}
	return Broker{}, false
}

// BrokerByFilename matches the registered filename patterns against the given
// name, case-insensitively.
func BrokerByFilename(filename string) (Broker, bool) {
	lower := strings.ToLower(filename)
	for _, b := range brokers {
		for _, pat := range b.FilePatterns {
			if strings.Contains(lower, pat) {
				return b, true
			}
		}
	}
	return Broker{}, false
}

// BrokerCodeForName maps a broker-name cell value to a member code via known
// substrings, or 0 when nothing matches.
func BrokerCodeForName(name string) int {
	upper := strings.ToUpper(name)
	for _, m := range nameSubstrings {
		if strings.Contains(upper, m.Substr) {
			return m.Code
		}
	}
	return 0
}

// Account identifies one known clearing-participant account.
type Account struct {
	CPCode string
	Name   string
}

var accounts = map[string]Account{
	"ECASL0000094": {CPCode: "ECASL0000094", Name: "AURIGIN"},
	"CITI00007707": {CPCode: "CITI00007707", Name: "WAFRA"},
}

// AccountName returns the registered name for a CP code, or "Unknown".
func AccountName(cpCode string) string {
	if a, ok := accounts[strings.ToUpper(strings.TrimSpace(cpCode))]; ok {
		return a.Name
	}
	return "Unknown"
}

// KnownAccount reports whether the CP code is registered.
func KnownAccount(cpCode string) bool {
	_, ok := accounts[strings.ToUpper(strings.TrimSpace(cpCode))]
	return ok
}

// DetectAccountLabel derives a display label from the distinct CP codes seen
// in a clearing file: the single known account name, the alphabetically first
// when several are present, or "Unknown".
func DetectAccountLabel(cpCodes []string) string {
	seen := map[string]bool{}
	for _, code := range cpCodes {
		if name := AccountName(code); name != "Unknown" {
			seen[name] = true
		}
	}
	if len(seen) == 0 {
		return "Unknown"
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names[0]
}
